package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"co2dash/internal/api"
	"co2dash/internal/config"
	"co2dash/internal/engine"
)

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			lvl, _ := config.ParseLevel(cfg.Log.Level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The API is live immediately and answers 503 until the data lands.
			h := api.NewHandler(nil, time.Duration(cfg.Server.CacheTTLSeconds)*time.Second)
			e := api.NewServer(h, api.ServerOptions{
				RateLimit:    cfg.Server.RateLimit,
				AllowOrigins: cfg.Server.AllowOrigins,
				LogLevel:     lvl,
			})

			loadErr := make(chan error, 1)
			go func() {
				log.Info("BACKGROUND: Starting load pipeline...")
				t0 := time.Now()

				ds, err := engine.Load(ctx, cfg.Sources())
				if err != nil {
					loadErr <- err
					return
				}
				h.SetData(ds)
				log.Infof("BACKGROUND: Load complete in %v. API is fully ready.", time.Since(t0))
			}()

			serveErr := make(chan error, 1)
			go func() {
				log.Infof("Server ready on %s (data loading in background...)", cfg.Addr())
				if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
			}()

			var runErr error
			select {
			case err := <-loadErr:
				// No dashboard without both inputs.
				runErr = fmt.Errorf("loading data: %w", err)
			case err := <-serveErr:
				runErr = err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.Warnf("shutdown: %v", err)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "Host to listen on")
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}
