package main

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/spf13/cobra"

	"github.com/vasiliy-maslov/storefront/internal/auth"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenAdmin  bool
	tokenTTL    time.Duration
)

// storefront token: sign a bearer token for local development and operators.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		userID, err := uuid.FromString(tokenUserID)
		if err != nil || userID == uuid.Nil {
			return fmt.Errorf("invalid --user-id %q", tokenUserID)
		}

		token, err := auth.NewVerifier(cfg.Auth.JWTSecret).Issue(auth.Identity{
			UserID:  userID,
			Email:   tokenEmail,
			IsAdmin: tokenAdmin,
		}, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "user id (UUID) carried by the token")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email carried by the token")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant admin access")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user-id")
	_ = tokenCmd.MarkFlagRequired("email")
}
