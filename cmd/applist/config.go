package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configOpts struct {
	path bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration applist is using, with defaults filled in,
as TOML. Use --path to print only the config file location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configOpts.path {
			fmt.Println(configPath())
			return nil
		}
		enc := toml.NewEncoder(os.Stdout)
		enc.SetIndentTables(true)
		return enc.Encode(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configOpts.path, "path", false, "Print the config file path")
}
