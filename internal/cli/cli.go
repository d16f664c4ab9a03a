// Package cli builds the job server's command line interface: a root
// command carrying global flags and a run subcommand that wires config,
// logging, metrics, the dataset, and the HTTP surface together and serves
// until an interrupt or terminate signal arrives.
package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbusdata/statsqueue/internal/app"
	"github.com/nimbusdata/statsqueue/internal/compute"
	"github.com/nimbusdata/statsqueue/internal/config"
	"github.com/nimbusdata/statsqueue/internal/dataset"
	"github.com/nimbusdata/statsqueue/internal/httpapi"
	"github.com/nimbusdata/statsqueue/internal/idalloc"
	"github.com/nimbusdata/statsqueue/internal/logging"
	"github.com/nimbusdata/statsqueue/internal/metrics"
	"github.com/nimbusdata/statsqueue/internal/queue"
	"github.com/nimbusdata/statsqueue/internal/resultstore"
	"github.com/nimbusdata/statsqueue/internal/shutdown"
	"github.com/nimbusdata/statsqueue/internal/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const queueCapacity = 1024

var (
	configFile  string
	addrFlag    string
	datasetFlag string
)

// BuildCLI returns the root stat-job-server command.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "stat-job-server",
		Short:   "HTTP job server for statistical queries against a fixed dataset",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file path")
	rootCmd.AddCommand(buildRunCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the job server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "override http.addr from config")
	cmd.Flags().StringVar(&datasetFlag, "dataset", "", "override dataset.path from config")

	return cmd
}

func runServer() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addrFlag != "" {
		cfg.HTTP.Addr = addrFlag
	}
	if datasetFlag != "" {
		cfg.Dataset.Path = datasetFlag
	}

	log.Printf("loading dataset from %s\n", cfg.Dataset.Path)
	table, err := dataset.LoadCSV(cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	if err := os.MkdirAll(cfg.Results.Dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Log.Dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	zlog, err := logging.New(cfg.Log.Dir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer zlog.Sync()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	collector.SetPoolSize(cfg.Worker.Count)

	dispatcher := compute.NewDatasetDispatcher(table)
	allocator := idalloc.New()
	q := queue.New(queueCapacity)
	store, err := resultstore.New(cfg.Results.Dir)
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}
	flag := shutdown.New()
	pool := workerpool.New(cfg.Worker.Count, q, dispatcher, store, flag, collector, zlog)
	ctx := app.New(table, dispatcher, allocator, q, store, pool, flag, zlog, collector)

	pool.Start()
	zlog.Event("worker pool started", zap.Int("worker_count", cfg.Worker.Count))

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(ctx),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s\n", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
		log.Println("received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("http server shutdown error", zap.Error(err))
	}

	ctx.RequestShutdown()
	log.Println("job server stopped")
	return nil
}
