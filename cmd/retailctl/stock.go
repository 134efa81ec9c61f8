package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/stock"
)

func init() {
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(alertsCmd)

	stockCmd.Flags().String("cutoff", "", "Point in time, RFC 3339 (default now)")
	alertsCmd.Flags().String("cutoff", "", "Point in time, RFC 3339 (default now)")
	alertsCmd.Flags().String("level", "", "Only show RED, YELLOW or GREEN")
}

var stockCmd = &cobra.Command{
	Use:   "stock [SKU_CODE...]",
	Short: "Show stock of SKUs at a point in time; every active SKU when none is given",
	Args:  cobra.ArbitraryArgs,
	RunE:  runStock,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show replenishment alerts, most urgent first",
	Args:  cobra.NoArgs,
	RunE:  runAlerts,
}

func cutoffFlag(cmd *cobra.Command) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString("cutoff")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --cutoff: %w", err)
	}
	return &t, nil
}

func runStock(cmd *cobra.Command, args []string) error {
	cutoff, err := cutoffFlag(cmd)
	if err != nil {
		return err
	}
	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []stock.SKUStock
	if len(args) == 0 {
		if rows, err = a.Stock.Snapshot(ctx, cutoff); err != nil {
			return err
		}
	} else {
		skuIDs := make([]id.ID, len(args))
		for i, code := range args {
			sku, err := a.Catalog.SKUByCode(ctx, code)
			if err != nil {
				return err
			}
			skuIDs[i] = sku.ID
		}
		levels, err := a.Stock.StockAsOf(ctx, skuIDs, cutoff)
		if err != nil {
			return err
		}
		for i, code := range args {
			rows = append(rows, stock.SKUStock{SKUID: skuIDs[i], SKUCode: code, Quantity: stock.Available(levels, skuIDs[i])})
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SKU\tSTOCK\t(at %s)\n", a.Stock.Cutoff(cutoff).Format(time.RFC3339))
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t\n", r.SKUCode, r.Quantity)
	}
	return w.Flush()
}

func runAlerts(cmd *cobra.Command, args []string) error {
	cutoff, err := cutoffFlag(cmd)
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("level")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.Stock.Alerts(ctx, cutoff)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tSKU\tSTOCK\tMIN\tREORDER\tDAILY\tCOVERAGE")
	for _, al := range alerts {
		if level != "" && string(al.Level) != level {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			al.Level, al.SKUCode, al.Stock, al.MinStock, al.ReorderPoint, al.DailyDemand, al.CoverageDays)
	}
	return w.Flush()
}
