package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"api-go-template/internal/app"
)

// rootCmd serves the API when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Items and accounts HTTP API",
	Long: `HTTP API with items CRUD and account endpoints.

Configuration comes from the environment and an optional .env file.
Running without a subcommand is the same as "api serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App) error { return a.Run() })
}

// withApp builds the application and flushes its logger when fn returns.
func withApp(fn func(*app.App) error) error {
	a, err := app.New()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
