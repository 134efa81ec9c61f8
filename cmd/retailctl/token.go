package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"retailcore/internal/domain/auth"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("email", "", "Email claim")
	tokenCmd.Flags().StringSlice("roles", nil, "Role claims, e.g. ANALYST")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default 8h)")
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Issue an access token signed with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	email, _ := cmd.Flags().GetString("email")
	roles, _ := cmd.Flags().GetStringSlice("roles")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	cfg := auth.DefaultJWTConfig(secret)
	if ttl > 0 {
		cfg.AccessTokenTTL = ttl
	}

	token, expires, err := auth.NewJWTService(cfg).GenerateAccessToken(args[0], email, roles)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
	return nil
}
