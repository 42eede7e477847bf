package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/bountybot/internal/adapter/driven/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and print the schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		version, dirty, err := sqliteadapter.MigrationVersion(db.Writer)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s is at schema version %d\n", green("✓"), db.Path(), version)
		if dirty {
			fmt.Fprintln(out, color.RedString("The last migration did not finish; the schema is dirty."))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
