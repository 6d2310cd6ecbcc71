package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

var waitTimeout time.Duration

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the server is healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := api.NewClient(getServerURL())

		attempts := uint(waitTimeout / time.Second)
		if attempts == 0 {
			attempts = 1
		}

		err := retry.Do(
			func() error {
				var resp endpoints.HealthResponse
				if err := client.Get(ctx, "/health", &resp); err != nil {
					return err
				}
				if resp.Status != "ok" {
					return fmt.Errorf("server status %q", resp.Status)
				}
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(attempts),
			retry.Delay(1*time.Second),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return errors.Join(fmt.Errorf("server at %s not healthy after %s", getServerURL(), waitTimeout), err)
		}
		fmt.Println("Server is healthy")
		return nil
	},
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.All() {
		registry.Register(ep)
	}

	apiCmd := registry.BuildCommands(getServerURL)

	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "how long to wait")
	apiCmd.AddCommand(waitCmd)

	rootCmd.AddCommand(apiCmd)
}
