package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimdaga/studymate/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert development data",
	Long:  `Create the development admin account and the default subjects, course codes and academic years. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadBase()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.IsProduction() {
			return fmt.Errorf("refusing to seed development data with ENV=production")
		}
		if err := database.RunMigrations(a.db, a.logger); err != nil {
			return err
		}
		return database.SeedDevData(a.db, a.logger)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
