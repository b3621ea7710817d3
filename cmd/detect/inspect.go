package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tutortoise/object-detection-service/config"
	"github.com/Tutortoise/object-detection-service/detections"
	"github.com/Tutortoise/object-detection-service/logger"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the model and print its tensors and class labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		log, err := logger.New(cfg.Environment, cfg.Debug)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		opts := providerOptions(cfg)
		opts.PoolSize = 1
		opts.WarmUp = false

		provider := detections.NewProvider(opts, log)
		defer func() {
			if err := provider.Close(); err != nil {
				log.Warn("failed to release model", zap.Error(err))
			}
		}()

		info, err := provider.Info(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "model:   %s\n", info.Path)
		fmt.Fprintf(out, "input:   %s [1, 3, %d, %d]\n", info.InputName, info.InputSize, info.InputSize)
		fmt.Fprintf(out, "output:  %s [1, %d, %d]\n", info.OutputName, 4+info.Classes, info.Anchors)
		fmt.Fprintf(out, "classes: %d\n", info.Classes)
		for i, name := range info.Labels {
			fmt.Fprintf(out, "  %3d  %s\n", i, name)
		}

		features := detections.CPUFeatures()
		var enabled []string
		for _, name := range []string{"sse41", "avx2", "avx512", "neon"} {
			if features[name] {
				enabled = append(enabled, name)
			}
		}
		fmt.Fprintf(out, "cpu:     %s\n", strings.Join(enabled, " "))
		return nil
	},
}

func init() {
	addModelFlags(inspectCmd)
}
