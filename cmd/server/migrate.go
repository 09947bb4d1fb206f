package main

import (
	"github.com/spf13/cobra"

	"github.com/jimdaga/studymate/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadBase()
		if err != nil {
			return err
		}
		defer a.close()
		return database.RunMigrations(a.db, a.logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadBase()
		if err != nil {
			return err
		}
		defer a.close()
		return database.RollbackMigration(a.db, a.logger)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}
