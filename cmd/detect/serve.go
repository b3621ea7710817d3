package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tutortoise/object-detection-service/config"
	"github.com/Tutortoise/object-detection-service/detections"
	"github.com/Tutortoise/object-detection-service/logger"
	"github.com/Tutortoise/object-detection-service/server"
	"github.com/Tutortoise/object-detection-service/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the detection API server",
	RunE:  runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addModelFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("model-path", config.Defaults["model_path"].(string), "Path to the YOLO ONNX model")
	flags.String("onnxruntime-lib", "", "Path to the ONNX Runtime shared library (default: per-OS file under lib/)")
	flags.Int("input-size", config.Defaults["input_size"].(int), "Model input size, used when the model has dynamic dimensions")
	flags.Int("pool-size", config.Defaults["pool_size"].(int), "Number of inference sessions")
	flags.Int("intra-op-threads", 0, "Threads per session (0: NumCPU / pool size)")
	flags.Bool("warmup", config.Defaults["warmup"].(bool), "Run a dummy inference on each session after loading")
	flags.String("environment", config.Defaults["environment"].(string), "Environment: dev, prod or test")
	flags.Bool("debug", false, "Enable debug logging")
}

func addServeFlags(cmd *cobra.Command) {
	addModelFlags(cmd)

	flags := cmd.Flags()
	flags.String("host", config.Defaults["host"].(string), "Host to listen on")
	flags.Int("port", config.Defaults["port"].(int), "Port to listen on")
	flags.Float64("conf-threshold", config.Defaults["conf_threshold"].(float64), "Minimum detection confidence")
	flags.Float64("iou-threshold", config.Defaults["iou_threshold"].(float64), "IoU threshold for non-maximum suppression")
	flags.Int("max-detections", config.Defaults["max_detections"].(int), "Maximum detections per image")
	flags.Bool("preload", false, "Load the model before accepting requests")
	flags.Int64("max-upload-bytes", 0, "Maximum upload size in bytes (0: unlimited)")
}

func providerOptions(cfg *config.Config) detections.Options {
	return detections.Options{
		ModelPath:      cfg.ModelPath,
		LibraryPath:    cfg.OnnxRuntimeLib,
		PoolSize:       cfg.PoolSize,
		IntraOpThreads: cfg.IntraOpThreads,
		AcquireTimeout: cfg.AcquireTimeout,
		InputSize:      cfg.InputSize,
		ConfThreshold:  float32(cfg.ConfThreshold),
		IoUThreshold:   float32(cfg.IoUThreshold),
		MaxDetections:  cfg.MaxDetections,
		WarmUp:         cfg.WarmUp,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	provider := detections.NewProvider(providerOptions(cfg), log)
	defer func() {
		if err := provider.Close(); err != nil {
			log.Warn("failed to release model", zap.Error(err))
		}
	}()

	log.Info("configuration loaded",
		zap.String("addr", cfg.Addr()),
		zap.String("model_path", cfg.ModelPath),
		zap.Int("pool_size", cfg.PoolSize),
		zap.Bool("preload", cfg.Preload),
		zap.Any("cpu_features", detections.CPUFeatures()),
	)

	if cfg.Preload {
		if err := provider.Load(cmd.Context()); err != nil {
			return err
		}
	}

	svc := service.NewDetectionService(provider, log)
	handler := server.NewHandler(svc, provider, cfg.MaxUploadBytes, log)
	srv := server.NewServer(cfg, server.Routes(handler, log), log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Stop(context.Background())
	}
}
