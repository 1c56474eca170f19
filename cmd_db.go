package main

import (
	"log/slog"

	"github.com/college-canteen/canteen-api/config"
	"github.com/spf13/cobra"
)

// canteen-api migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := bootDB()
		return err
	},
}

var seedMenu bool

// canteen-api seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default accounts and, with --menu, today's sample menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := bootDB(); err != nil {
			return err
		}

		report, err := seedDatabase(config.GetDB(), seedMenu)
		if err != nil {
			return err
		}
		slog.Info("seeding completed",
			"users_created", report.UsersCreated,
			"users_skipped", report.UsersSkipped,
			"dishes_created", report.DishesCreated,
			"dishes_skipped", report.DishesSkipped,
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedMenu, "menu", false, "also list sample dishes on today's menu")
}
