package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/progress"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Sync and inspect the Dataverse table and column catalog",
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync [table...]",
	Short: "Fetch solution tables and their column metadata",
	Long: `Fetches the tables of the configured solution into the entity map, then the
column metadata of each table into its field file. Naming tables limits the
column fetch to those tables.`,
	RunE: runCatalogSync,
}

var catalogEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the cached entity map",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := catalog.NewStore(cfg.CatalogDir, nil)
		em, err := store.LoadEntityMap()
		if err != nil {
			return err
		}
		if em.Len() == 0 {
			fmt.Println("The entity map is empty. Run `pluginassist catalog sync` first.")
			return nil
		}
		em.Each(func(key, logical string) bool {
			fmt.Printf("%-40s %s\n", key, logical)
			return true
		})
		return nil
	},
}

var catalogFieldsCmd = &cobra.Command{
	Use:   "fields <table>",
	Short: "Show the cached columns of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		table := strings.ToLower(args[0])
		ff, err := catalog.NewStore(cfg.CatalogDir, nil).LoadFieldFile(table)
		if err != nil {
			return err
		}
		if ff.Len() == 0 {
			return fmt.Errorf("no cached fields for %s; run `pluginassist catalog sync %s`", table, table)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(ff.Columns())
		}
		for _, col := range ff.Columns() {
			extra := ""
			switch {
			case len(col.Targets) > 0:
				extra = "-> " + strings.Join(col.Targets, ", ")
			case len(col.OptionSet) > 0:
				extra = fmt.Sprintf("%d options", len(col.OptionSet))
			}
			fmt.Printf("%-40s %-30s %-20s %s\n", col.LogicalName, col.DisplayName, col.Type, extra)
		}
		return nil
	},
}

var catalogAttributesCmd = &cobra.Command{
	Use:   "attributes <table>",
	Short: "Fetch a table's column metadata live, without caching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Sync()

		client, err := newMetadataClient(cfg, logger)
		if err != nil {
			return err
		}
		cols, err := client.GetAttributes(cmd.Context(), strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		return printJSON(cols)
	},
}

func runCatalogSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	solution, _ := cmd.Flags().GetString("solution")
	if solution == "" {
		solution = cfg.Solution
	}
	entitiesOnly, _ := cmd.Flags().GetBool("entities-only")
	fieldsOnly, _ := cmd.Flags().GetBool("fields-only")

	client, err := newMetadataClient(cfg, logger)
	if err != nil {
		return err
	}
	store := catalog.NewStore(cfg.CatalogDir, logger.Named("catalog"))
	ctx := cmd.Context()

	if !fieldsOnly {
		entities, err := store.SyncEntities(ctx, client, solution)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d tables of solution %s\n", len(entities), solution)
	}
	if entitiesOnly {
		return nil
	}

	tables := make([]string, 0, len(args))
	for _, t := range args {
		tables = append(tables, strings.ToLower(t))
	}

	res, err := store.SyncFields(ctx, client, tables, progress.NewReporter("Fetching columns"))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Saved column metadata for %d tables to %s\n", len(res.Saved), cfg.CatalogDir)
	if len(res.Failed) == 0 {
		return nil
	}
	failed := make([]string, 0, len(res.Failed))
	for table := range res.Failed {
		failed = append(failed, table)
	}
	sort.Strings(failed)
	for _, table := range failed {
		logger.Error("column fetch failed", zap.String("table", table), zap.Error(res.Failed[table]))
	}
	return fmt.Errorf("%d of %d tables failed: %s", len(failed), len(failed)+len(res.Saved), strings.Join(failed, ", "))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	catalogSyncCmd.Flags().String("solution", "", "solution unique name (overrides config)")
	catalogSyncCmd.Flags().Bool("entities-only", false, "only refresh the entity map")
	catalogSyncCmd.Flags().Bool("fields-only", false, "only refresh field files from the cached solution listing")
	catalogFieldsCmd.Flags().Bool("json", false, "output columns as JSON")

	catalogCmd.AddCommand(catalogSyncCmd, catalogEntitiesCmd, catalogFieldsCmd, catalogAttributesCmd)
	rootCmd.AddCommand(catalogCmd)
}
