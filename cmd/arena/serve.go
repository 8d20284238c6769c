package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/config"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/httpapi"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/hub"
)

func newServeCmd(verbose *bool) *cobra.Command {
	cfg := config.Server{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback arena server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServe(cmd.Context(), log, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Addr, "addr", "a", ":8080", "address to listen on (env: ARENA_ADDR)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret for signing bearer tokens (env: ARENA_JWT_SECRET)")
	fs.StringVar(&cfg.PublicURL, "public-url", "http://localhost:8080", "base url encoded into join QR codes (env: ARENA_PUBLIC_URL)")

	return cmd
}

func runServe(parent context.Context, log *zap.Logger, cfg config.Server) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, log)
	api := httpapi.New(h, log, []byte(cfg.JWTSecret), cfg.PublicURL)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Inbox() <- hub.ShutdownHub{}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
