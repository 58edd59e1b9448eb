package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/api"
	"github.com/yourusername/media-proxy-go/api/handlers"
	"github.com/yourusername/media-proxy-go/internal/app"
	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
	"github.com/yourusername/media-proxy-go/pkg/logger"
)

var (
	configPath string
	daemonize  bool
	rootCmd    = &cobra.Command{
		Use:   "media-proxy-server",
		Short: "Media Proxy server - download media through yt-dlp and stream it to the client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemonize {
				return startAsDaemon()
			}
			return runServer()
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.Flags().BoolVarP(&daemonize, "daemon", "d", false, "Run the server in the background")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// startAsDaemon re-executes the binary in the foreground, detached from
// the current session
func startAsDaemon() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	var args []string
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	return nil
}

func runServer() error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Categorized event logs (download, error, engine) are optional
	var multiLog *logger.MultiLogger
	if config.Logging.LogsDir != "" {
		multiLog, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize event logs: %w", err)
		}
		defer multiLog.Close()
	}
	logAdapter := logger.NewLoggerAdapter(log, multiLog)

	log.Info("Starting Media Proxy server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("downloads_dir", config.Download.Dir),
		zap.Int("workers", config.Download.Workers))

	storage := infrastructure.NewOSStorage(config.Download.Dir, config.Download.Placeholder)
	if err := storage.Ensure(); err != nil {
		return fmt.Errorf("failed to prepare downloads directory: %w", err)
	}

	var history domain.HistoryRepository
	if config.History.Enabled {
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize history: %w", err)
		}
		defer repo.Close()
		history = repo
	}

	metrics := infrastructure.NewMetrics()
	rotator := app.NewUserAgentRotator(config.Engine.UserAgents)
	builder := app.NewOptionBuilder(&config.Engine, config.Download.MaxFileSize, rotator)
	pool := app.NewWorkerPool(config.Download.Workers)

	engine := infrastructure.NewYTDLPEngine(config.Engine.YTDLPBinary, config.Logging.LogsDir, log)
	resolver := infrastructure.NewShortLinkResolver(
		config.Engine.ShortenerHosts,
		config.Engine.ResolveTimeout,
		rotator.Current(),
		log,
	)

	orchestrator := app.NewOrchestrator(engine, resolver, storage, builder, pool, metrics, log,
		app.WithScanSlack(config.Download.ScanSlack))
	previewer := app.NewPreviewer(engine, resolver, builder, pool, metrics, log)
	service := app.NewDownloadService(orchestrator, previewer, storage, history, metrics, logAdapter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	janitor := app.NewJanitor(storage, &config.Download, metrics, logAdapter)
	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}

	router := api.SetupRouter(service, janitor, pool, metrics, logAdapter, config.Download.Dir)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		logAdapter.LogAppError("HTTP server failed", zap.Error(err))
		return err
	}

	log.Info("Shutting down server...")

	// Downloads in flight may take a while to finish streaming
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := janitor.Stop(); err != nil {
		log.Warn("Error stopping janitor", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
