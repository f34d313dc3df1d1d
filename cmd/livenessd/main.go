package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livenessd/server/internal/config"
	"github.com/livenessd/server/internal/detector"
	"github.com/livenessd/server/internal/liveness"
	"github.com/livenessd/server/internal/logging"
	"github.com/livenessd/server/internal/models"
	"github.com/livenessd/server/pkg/api"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "livenessd",
	Short: "Liveness detection server",
	Long:  `livenessd serves challenge-response liveness and presentation-attack checks over websocket.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the liveness server",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("livenessd v%s\n", version)
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "config-check",
	Short: "Load and validate the configuration without starting the server",
	Run: func(cmd *cobra.Command, args []string) {
		configCheck()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/livenessd/livenessd.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging sets up structured logging from config. Call after config.Load().
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout

	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

func configCheck() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("config OK: bind=%s maxFps=%d modelsDir=%s\n", cfg.BindAddr, cfg.MaxFPS, cfg.ModelsDir)
}

// serve starts the HTTP/websocket server and blocks until a termination
// signal is received, then shuts the HTTP server down gracefully: in-flight
// HTTP requests drain, but upgraded websocket connections are not waited for.
func serve() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)

	log.Info("starting livenessd",
		"version", version,
		"bindAddr", cfg.BindAddr,
		"maxFps", cfg.MaxFPS,
		"modelsDir", cfg.ModelsDir,
	)

	catalog := models.SelectBest(cfg.ModelsDir)
	if catalog.FaceDetection == nil {
		log.Warn("no face detection model selected, face path will be inert", "modelsDir", cfg.ModelsDir)
	}
	if catalog.Liveness == nil {
		log.Warn("no liveness model selected", "modelsDir", cfg.ModelsDir)
	}

	// The inference runtime that would score a Scorer callback is out of
	// scope; the detector adapter degrades to a no-op when passed nil.
	var det *detector.Adapter
	if catalog.FaceDetection != nil {
		det = detector.New(detector.DefaultConfig(), nil)
	}

	mgr := liveness.NewManager()
	srv := api.NewServer(cfg, mgr, catalog, det)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	log.Info("livenessd stopped")
}
