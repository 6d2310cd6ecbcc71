package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/config"
	"github.com/jackzampolin/marquee/internal/home"
	"github.com/jackzampolin/marquee/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "Extract structured data from concert posters",
	Long: `Marquee turns concert poster images into structured JSON.

Pick a schema ("Bands Only", "Events", or your own from config), upload a
poster, and an image-understanding model fills in the schema:
  - Schemas compile to JSON Schema and constrain the model's output
  - Any OpenAI-compatible endpoint works (Workers AI, OpenAI, OpenRouter)
  - A small web UI and a JSON API share one server`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.marquee/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "marquee home directory (default: $MARQUEE_HOME or ~/.marquee)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the config manager from --config, then the home directory,
// then the default search path.
func loadConfig() (*config.Manager, error) {
	path := cfgFile
	if path == "" {
		h, err := home.New(homeDir)
		if err != nil {
			return nil, err
		}
		if h.ConfigExists() {
			path = h.ConfigPath()
		}
	}
	return config.NewManager(path)
}
