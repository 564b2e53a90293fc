package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
)

func MigrateCmd(load loader) *cobra.Command {
	var skipLegacy bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and backfill legacy role-qualified messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			report, err := migrate(cmd.Context(), cfg, skipLegacy)
			if err != nil {
				return err
			}
			printMigrateSummary(os.Stdout, cfg.StoreDriver, report, skipLegacy)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipLegacy, "skip-legacy", false, "only apply the schema")
	return cmd
}

func migrate(ctx context.Context, cfg config.Config, skipLegacy bool) (db.LegacyReport, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		database, err := db.Connect(ctx, cfg.DBDSN)
		if err != nil {
			return db.LegacyReport{}, err
		}
		defer database.Close()
		if skipLegacy {
			return db.LegacyReport{}, nil
		}
		return db.MigrateLegacyPairing(ctx, database)
	case config.StoreMongo:
		client, database, err := db.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return db.LegacyReport{}, err
		}
		defer client.Disconnect(context.Background())
		if skipLegacy {
			return db.LegacyReport{}, nil
		}
		return db.MigrateLegacyMongo(ctx, database)
	default:
		return db.LegacyReport{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func printMigrateSummary(w io.Writer, driver string, report db.LegacyReport, skipLegacy bool) {
	ok := color.New(color.FgGreen).Sprint("✓")
	fmt.Fprintf(w, "%s schema up to date (%s)\n", ok, driver)
	if skipLegacy {
		fmt.Fprintf(w, "  legacy backfill: %s\n", color.New(color.FgYellow).Sprint("skipped"))
		return
	}

	fmt.Fprintf(w, "%s legacy backfill\n", ok)
	fmt.Fprintf(w, "  scanned:  %d\n", report.Scanned)
	fmt.Fprintf(w, "  migrated: %s\n", color.New(color.FgGreen).Sprint(report.Migrated))
	skipped := fmt.Sprint(report.Skipped)
	if report.Skipped > 0 {
		skipped = color.New(color.FgYellow).Sprintf("%d (ambiguous or incomplete pairing, left in place)", report.Skipped)
	}
	fmt.Fprintf(w, "  skipped:  %s\n", skipped)
}
