package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/audit"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/db"
)

var (
	auditSession   string
	auditLimit     int
	auditOlderThan time.Duration
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the session audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openAuditStore()
		if err != nil {
			return err
		}
		defer closeDB()

		entries, err := store.Query(cmd.Context(), audit.QueryFilter{
			SessionID: auditSession,
			Limit:     auditLimit,
		})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No audit entries.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-22s %-12s %s\n",
				e.Timestamp.Local().Format(time.DateTime), e.Action, e.ActorID, e.Summary)
		}
		return nil
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit entries older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDB, err := openAuditStore()
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := store.DeleteBefore(cmd.Context(), time.Now().Add(-auditOlderThan))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d audit entries.\n", n)
		return nil
	},
}

// openAuditStore opens the audit trail without building an LLM provider.
func openAuditStore() (*audit.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return audit.NewStore(database), func() { database.Close() }, nil
}

func init() {
	auditListCmd.Flags().StringVar(&auditSession, "session", "", "Only show entries of this session")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of entries")
	auditPruneCmd.Flags().DurationVar(&auditOlderThan, "older-than", 90*24*time.Hour, "Age of the entries to delete")
	auditCmd.AddCommand(auditListCmd, auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}
