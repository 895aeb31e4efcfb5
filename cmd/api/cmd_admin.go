package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"api-go-template/internal/app"
	"api-go-template/internal/auth"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error { return a.Migrate(cmd.Context()) })
	},
}

var (
	tokenID    string
	tokenEmail string
	tokenRole  string
)

// tokenCmd signs a token pair for manual testing. Only valid with AUTH_MODE=jwt.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed access and refresh token",
	Long: `Sign a token pair with JWT_SECRET and JWT_REFRESH_SECRET.

The subject does not need to exist in the users table for the access
token to be accepted. Refreshing it does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenID == "" {
			tokenID = uuid.NewString()
		}
		return withApp(func(a *app.App) error {
			pair, err := a.IssueToken(auth.Principal{ID: tokenID, Email: tokenEmail, Role: tokenRole})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pair)
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenID, "id", "", "subject id (default: random uuid)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.DefaultRole, "role claim")
}
