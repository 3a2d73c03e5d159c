package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/shopagent/internal/server"
)

var serverPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket agent server",
	Long:  `Starts the shopagent server with the task API, the WebSocket event stream, health checks and metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if serverPort > 0 {
			cfg.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		deps := server.Deps{
			Executor: a.executor,
			Cache:    a.cache,
			Threads:  a.threads,
			Logger:   log,
		}
		if a.index != nil {
			deps.Index = a.index
		}
		srv, err := server.New(server.Config{
			Host:            cfg.Host,
			Port:            cfg.Port,
			AllowAll:        true,
			Provider:        string(cfg.Provider),
			Model:           cfg.Model,
			EnableRAG:       cfg.EnableRAG,
			EnableWebSearch: cfg.EnableWebSearch,
			EnableCaching:   cfg.EnableCaching,
		}, deps)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown", "err", err)
			}
		}()

		log.Info("shopagent server starting",
			"version", Version,
			"addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			"provider", cfg.Provider,
			"model", cfg.Model,
			"state_db", cfg.StateDBPath,
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
