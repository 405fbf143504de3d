package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fxsml/msgdriver/internal/logging"
	"github.com/fxsml/msgdriver/unit"
	"github.com/fxsml/msgdriver/units"
)

const envPrefix = "MPDRIVER"

// app is the state shared by the subcommands.
type app struct {
	v       *viper.Viper
	catalog *unit.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), catalog: units.Catalog()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "mpdriver",
		Short: "Run message-processing drivers",
		Long: "mpdriver loads driver and unit properties from a YAML file and runs\n" +
			"requests through the configured units.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.String("config", "", "config file with flag values (yaml, json or toml)")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "text", "log format: text or json")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newDescribeCmd(a))
	root.AddCommand(newUnitsCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if file := a.v.GetString("config"); file != "" {
		a.v.SetConfigFile(file)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	level, err := logging.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	logging.Init(level, a.v.GetString("log-format"), cmd.ErrOrStderr())
	return nil
}

func (a *app) required(names ...string) error {
	var missing []string
	for _, name := range names {
		if a.v.GetString(name) == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required: %s", strings.Join(missing, ", "))
	}
	return nil
}
