package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("dir", "db/migrations", "Migrations directory")
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply database migrations with goose",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	action := "up"
	if len(args) == 1 {
		action = args[0]
	}
	dir, _ := cmd.Flags().GetString("dir")

	goose := exec.CommandContext(cmd.Context(), "goose", "-dir", dir, "postgres", dsn, action)
	goose.Stdout = cmd.OutOrStdout()
	goose.Stderr = cmd.ErrOrStderr()
	if err := goose.Run(); err != nil {
		return fmt.Errorf("goose %s: %w", action, err)
	}
	return nil
}
