package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"qcflow/internal/bootstrap/config"
	"qcflow/internal/errs"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (defaults, file and QC_* env merged)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cmd.Context(), cfgFile)
		if err != nil {
			return errs.Wrap(err, "load config")
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(cfg); err != nil {
			return errs.Wrap(err, "encode config")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
