package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Tutortoise/object-detection-service/config"
)

var v = viper.New()

var Cmd = &cobra.Command{
	Use:          "object-detection-service",
	Short:        "YOLO object detection API for ESP32-CAM clients",
	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Setup(v)
		bindFlags(cmd.Flags())

		envFile, _ := cmd.Flags().GetString("env-file")
		configFile, _ := cmd.Flags().GetString("config-file")
		return config.LoadFiles(v, envFile, configFile)
	},
	RunE: runServe,
}

func Execute() {
	if err := Cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()
	pflags.String("config-file", "", "Path to a YAML config file")
	pflags.String("env-file", "", "Path to a .env file")

	addServeFlags(Cmd)

	Cmd.AddCommand(serveCmd, inspectCmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}

// bindFlags binds every flag to the config key of the same name, with
// hyphens turned into underscores (--model-path -> model_path).
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config-file" || f.Name == "env-file" {
			return
		}
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}
