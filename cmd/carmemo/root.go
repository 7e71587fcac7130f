package main

import (
	"github.com/spf13/cobra"
	"github.com/ukydev/carmemo/internal/config"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "carmemo",
		Short:         "Vehicle maintenance tracking and forecasting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (defaults to $CARMEMO_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCmd(opts),
		newForecastCmd(opts),
		newCategoryCmd(),
		newBaselineCmd(opts),
	)
	return root
}

// load reads .env and the config file, then applies logging settings.
func (o *rootOptions) load() (*config.Config, error) {
	if o.envFile != "" {
		config.LoadDotEnv(o.envFile)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ConfigureLogging()
	return cfg, nil
}
