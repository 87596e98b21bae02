package main

import (
	"fmt"
	"strconv"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate up|down|to VERSION",
	Short: "Apply or roll back database migrations",
	Long: `Run schema migrations against the database named by the DB_* settings.

  leadimport migrate up        # apply every pending migration
  leadimport migrate down      # roll back the last migration
  leadimport migrate to 1      # move up or down to version 1`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, version, err := parseMigrateArgs(args)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = cfg.Database.MigrationsPath
		}

		db, err := database.New(&cfg.Database, cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		switch action {
		case "up":
			err = db.RunMigrations(path)
		case "down":
			err = db.MigrateDown(path)
		case "to":
			err = db.MigrateToVersion(path, version)
		}
		if err != nil {
			return err
		}

		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "%s migrate %s done\n", renderPass(iconPass), action)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("path", "", "Migrations directory (default MIGRATIONS_PATH)")
}

// parseMigrateArgs validates the action before any connection is opened
func parseMigrateArgs(args []string) (string, uint, error) {
	switch args[0] {
	case "up", "down":
		if len(args) != 1 {
			return "", 0, fmt.Errorf("migrate %s takes no version", args[0])
		}
		return args[0], 0, nil
	case "to":
		if len(args) != 2 {
			return "", 0, fmt.Errorf("migrate to requires a VERSION")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return "", 0, fmt.Errorf("invalid migration version %q", args[1])
		}
		return "to", uint(version), nil
	}
	return "", 0, fmt.Errorf("unknown migrate action %q (want up, down or to)", args[0])
}
