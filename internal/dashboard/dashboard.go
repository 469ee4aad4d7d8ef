package dashboard

import (
	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/requirements"
)

// Dashboard provides the browser chat for the requirements dialogue.
type Dashboard struct {
	engine  *requirements.Engine
	catalog *catalog.Store
	md      goldmark.Markdown
	logger  *zap.Logger
}

// New creates a new Dashboard. cat may be nil.
func New(engine *requirements.Engine, cat *catalog.Store, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		engine:  engine,
		catalog: cat,
		md:      newMarkdown(),
		logger:  logger,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/ws/chat", d.handleWebSocket)
}
