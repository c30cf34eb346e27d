package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/api"
	"github.com/JakeFAU/crawl-gateway/internal/auth"
	"github.com/JakeFAU/crawl-gateway/internal/config"
	"github.com/JakeFAU/crawl-gateway/internal/detector"
	"github.com/JakeFAU/crawl-gateway/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/crawl-gateway/internal/fetcher/colly"
	"github.com/JakeFAU/crawl-gateway/internal/fetcher/headless"
	"github.com/JakeFAU/crawl-gateway/internal/logging"
	"github.com/JakeFAU/crawl-gateway/internal/retrieval"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() {
				// Sync fails on non-syncable stdout/stderr; nothing useful to do with it.
				_ = logger.Sync()
			}()

			gw := buildGateway(cfg, logger)
			defer gw.Close()

			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, ln, gw.handler, cfg.RequestTimeout(), logger)
		},
	}
}

// gateway is the wired component graph behind the HTTP handler.
type gateway struct {
	handler http.Handler
	closers []func()
}

func (g *gateway) Close() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		g.closers[i]()
	}
}

// buildGateway wires validator, detector, retrievers and dispatcher from cfg.
func buildGateway(cfg config.Config, logger *zap.Logger) *gateway {
	gw := &gateway{}

	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Probe.UserAgent,
		Timeout:   cfg.ProbeTimeout(),
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	var pageOpts []retrieval.PageOption
	if cfg.Headless.Enabled {
		renderer, err := headless.NewRenderer(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			logger.Warn("headless renderer init failed, serving static pages only", zap.Error(err))
		} else {
			gw.closers = append(gw.closers, renderer.Close)
			pageOpts = append(pageOpts, retrieval.WithRenderer(renderer, retrieval.NewRenderHeuristic(cfg.Headless.PromotionThresh)))
		}
	}

	page := retrieval.NewPage(fetcher, cfg.Fetch.MaxPageBytes, logger.Named("page"), pageOpts...)
	document := retrieval.NewDocument(fetcher, cfg.Fetch.MaxDocumentBytes, logger.Named("document"))

	gw.handler = api.NewServer(
		auth.NewValidator(cfg.Auth.SecretKey, nil),
		detector.New(probe, cfg.ProbeTimeout(), logger.Named("detector")),
		dispatcher.New(document, page, logger.Named("dispatcher")),
		logger.Named("api"),
		api.Options{
			RequestTimeout:     cfg.RequestTimeout(),
			CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		},
	).Handler()
	return gw
}

// runServer serves on ln until ctx is done, then drains in-flight requests.
func runServer(ctx context.Context, ln net.Listener, handler http.Handler, requestTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
