package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/imports"
)

func init() {
	rootCmd.AddCommand(voidCmd)
	rootCmd.AddCommand(importCmd)

	voidCmd.Flags().String("reason", "", "Void reason recorded on the sale")

	importCmd.Flags().Bool("dry-run", false, "Validate rows without writing anything")
	importCmd.Flags().String("season-mode", "", "AUTOMATIC, FIXED or NONE")
	importCmd.Flags().String("season-id", "", "Season for --season-mode FIXED")
	importCmd.Flags().String("note", "", "Note stored on the batch log")
}

var voidCmd = &cobra.Command{
	Use:   "void SALE_ID",
	Short: "Void a sale, restoring its stock",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoid,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import sales from a JSON file of rows",
	Long: `Import sales from a JSON array of rows with the fields timestamp, channel,
reference, sku, quantity, unitPrice and optionally listPrice. Rows sharing
timestamp, channel and reference become one sale.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runVoid(cmd *cobra.Command, args []string) error {
	saleID, err := id.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid sale id %q: %w", args[0], err)
	}
	reason, _ := cmd.Flags().GetString("reason")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Sales.Void(ctx, saleID, reason); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sale %s voided\n", saleID)
	return nil
}

func readRows(path string) ([]imports.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rows []imports.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	rows, err := readRows(args[0])
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	mode, _ := cmd.Flags().GetString("season-mode")
	rawSeason, _ := cmd.Flags().GetString("season-id")
	note, _ := cmd.Flags().GetString("note")

	var seasonID *id.ID
	if rawSeason != "" {
		parsed, err := id.Parse(rawSeason)
		if err != nil {
			return fmt.Errorf("invalid --season-id: %w", err)
		}
		seasonID = &parsed
	}
	season, err := catalog.ParseSeasonPolicy(mode, seasonID)
	if err != nil {
		return err
	}

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Imports.Import(ctx, rows, imports.Options{
		DryRun:   dryRun,
		Season:   season,
		Note:     note,
		FileName: args[0],
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
