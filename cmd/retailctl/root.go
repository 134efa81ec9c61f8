package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"retailcore/internal/app"
	"retailcore/internal/config"
	appctx "retailcore/internal/core/context"
	"retailcore/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "retailctl",
	Short:         "Operate a retailcore installation",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := "warn"
		if verbose {
			level = "debug"
		}
		log, err := logger.New(logger.Config{Level: level, Development: true})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("user", defaultUser(), "Acting user recorded on writes")
	rootCmd.PersistentFlags().StringSlice("role", nil, "Roles of the acting user")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "retailctl"
}

// openApp loads the configuration and wires the services. The returned context
// carries the acting user.
func openApp(cmd *cobra.Command) (context.Context, *app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		// the CLI never validates tokens
		cfg.AuthDisabled = true
		if err = cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	user, _ := cmd.Flags().GetString("user")
	roles, _ := cmd.Flags().GetStringSlice("role")
	ctx := appctx.WithUser(cmd.Context(), &appctx.UserContext{UserID: user, Roles: roles})
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())
	ctx = logger.WithLogger(ctx, logger.Default().WithComponent("retailctl"))

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
