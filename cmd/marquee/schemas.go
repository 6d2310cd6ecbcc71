package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/highlight"
	"github.com/jackzampolin/marquee/internal/schema"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect extraction schemas without a running server",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schema names",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadSchemas()
		if err != nil {
			return err
		}
		return api.Output(registry.Names())
	},
}

var schemasShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the JSON Schema sent to the model for a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadSchemas()
		if err != nil {
			return err
		}
		def, err := registry.Resolve(args[0])
		if err != nil {
			return err
		}
		compiled, err := schema.Compile(*def)
		if err != nil {
			return err
		}
		out, err := highlight.ANSI(compiled)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func loadSchemas() (*schema.Registry, error) {
	cfgMgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(cfgMgr.Get().SchemaDefinitions()...)
}

func init() {
	schemasCmd.AddCommand(schemasListCmd)
	schemasCmd.AddCommand(schemasShowCmd)
	rootCmd.AddCommand(schemasCmd)
}
