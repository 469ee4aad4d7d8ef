package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/audit"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/dashboard"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/requirements"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and chat dashboard",
	Long:  `Starts the pluginassist server with the session REST API, catalog and advisory endpoints, and the browser chat dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAll,
		}, a.logger.Named("http"))
		registerAllRoutes(srv, a)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		tables := cachedTables(a.catalog, a.logger)
		a.logger.Info("pluginassist server starting",
			zap.String("version", Version),
			zap.Int("port", port),
			zap.String("database", a.database.Path()),
			zap.String("catalog", a.catalog.Dir()),
			zap.Int("cached_tables", tables),
		)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// registerAllRoutes wires up all feature routes.
func registerAllRoutes(srv *server.Server, a *app) {
	r := srv.Router()

	requirements.RegisterRoutes(r, a.engine)
	catalog.RegisterRoutes(r, a.catalog)
	advisory.RegisterRoutes(r)
	audit.RegisterRoutes(r, a.audit)

	// Dashboard (chat UI)
	dash := dashboard.New(a.engine, a.catalog, a.logger.Named("dashboard"))
	dash.RegisterRoutes(r)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
