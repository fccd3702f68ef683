// Package commands implements portalctl, the operator CLI of the assistance
// portal: offline validation, formatting previews and session inspection.
package commands

import (
	"github.com/spf13/cobra"

	"assistance-portal/internal/common/config"
	"assistance-portal/internal/form/country"
)

type options struct {
	configPath    string
	countriesPath string
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator tools for the financial assistance portal",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.countriesPath, "countries", "", "country table YAML (default embedded table)")

	root.AddCommand(
		validateCmd(opts),
		countriesCmd(opts),
		formatCmd(opts),
		sessionCmd(opts),
	)
	return root
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromFile(o.configPath)
	}
	return config.Load()
}

func (o *options) countries() (*country.Table, error) {
	if o.countriesPath != "" {
		return country.LoadFile(o.countriesPath)
	}
	return country.Default(), nil
}
