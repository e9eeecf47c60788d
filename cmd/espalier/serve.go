package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/internal/dto"
	"github.com/espalierhq/espalier/internal/logging"
	httpadapter "github.com/espalierhq/espalier/pkg/adapters/http"
	redisadapter "github.com/espalierhq/espalier/pkg/adapters/redis"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/observability"
	"github.com/espalierhq/espalier/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve <flow-file>...",
	Short: "Start the HTTP control server",
	Long:  `Defines the given flow files and exposes them over a JSON API: start runs, inspect state, pause/resume/abort. Prometheus metrics are served on /metrics.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")

		logger := logging.New(slog.LevelInfo)

		promReg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(promReg)

		hooks := []domain.LifecycleHooks{
			metrics.Hooks(),
			observability.AuditHooks(logger),
		}

		var publisher *redisadapter.Publisher
		if redisAddr != "" {
			publisher = redisadapter.New(redisAddr, "", 0, redisadapter.WithLogger(logging.Wrap(logger)))
			defer publisher.Close()
			hooks = append(hooks, publisher.Hooks())
		}

		engine := espalier.New(
			espalier.WithSlog(logger),
			espalier.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		)

		cat := builtinCatalog()
		for _, path := range args {
			file, err := dto.Load(path)
			if err != nil {
				fmt.Printf("Error loading %s: %v\n", path, err)
				os.Exit(1)
			}
			name, tasks, opts, err := file.Build(cat)
			if err != nil {
				fmt.Printf("Error building %s: %v\n", path, err)
				os.Exit(1)
			}
			if err := engine.Define(name, tasks, opts); err != nil {
				fmt.Printf("Error defining %s: %v\n", path, err)
				os.Exit(1)
			}
			logger.Info("flow defined", "flow", name, "file", path)
		}

		runs := session.NewManager()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		mux.Handle("/", httpadapter.NewHandler(engine, runs, logger))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Espalier Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Espalier Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for snapshot mirroring (optional)")
}
