package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medtriage/internal/agent"
	"medtriage/internal/config"
	"medtriage/internal/observability"
	"medtriage/internal/pharmacy"
	"medtriage/internal/platform/telegram"
	"medtriage/internal/report"
	"medtriage/internal/triage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:  observability.DefaultServiceName,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	observability.InitMetrics()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	reasoner, err := agent.New(ctx, agent.Config{
		Provider:          cfg.Reasoner.Provider,
		APIKey:            cfg.Reasoner.APIKey,
		BaseURL:           cfg.Reasoner.BaseURL,
		Model:             cfg.Reasoner.Model,
		RequestsPerMinute: cfg.Reasoner.RequestsPerMinute,
		Burst:             cfg.Reasoner.Burst,
		Timeout:           cfg.ReasonerTimeout(),
	})
	if err != nil {
		return err
	}

	registry := triage.NewRegistry()
	janitor, err := registry.StartJanitor(cfg.Sessions.JanitorSpec, cfg.SessionIdleTTL(), logger.Named("janitor"))
	if err != nil {
		return err
	}
	defer janitor.Stop()

	triageSvc := triage.NewService(triage.Deps{
		Reasoner: reasoner,
		Registry: registry,
		History:  st.history,
		Feedback: st.feedback,
		Reporter: newReportService(cfg, logger),
		Notifier: newNotifier(cfg, logger),
		Logger:   logger.Named("triage"),
	})
	pharmacySvc := pharmacy.NewService(st.orders, logger.Named("pharmacy"))

	r := newRouter(logger, triage.NewHandler(triageSvc, logger), pharmacy.NewHandler(pharmacySvc, logger))
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return shutdownTracing(shutdownCtx)
	})
	return g.Wait()
}

func newReportService(cfg *config.Config, logger *zap.Logger) *report.Service {
	var sink report.Sink
	switch {
	case cfg.Telegram.BotToken != "" && cfg.Telegram.DoctorChatID != 0:
		sink = report.TelegramSink{
			Client: telegram.NewClient(cfg.Telegram.BotToken),
			ChatID: cfg.Telegram.DoctorChatID,
		}
	case cfg.Report.ExportDir != "":
		sink = report.FileSink{Dir: cfg.Report.ExportDir}
	default:
		logger.Warn("no report sink configured, sharing reports is disabled")
	}
	return report.NewService(report.NewRenderer(cfg.Report.FontPaths), sink, logger.Named("report"))
}

// newNotifier returns the doctor chat alert, or nil when Telegram is not
// configured.
func newNotifier(cfg *config.Config, logger *zap.Logger) triage.Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.DoctorChatID == 0 {
		logger.Info("telegram not configured, high risk alerts are disabled")
		return nil
	}
	return report.TelegramAlert{
		Client: telegram.NewClient(cfg.Telegram.BotToken),
		ChatID: cfg.Telegram.DoctorChatID,
	}
}

func newRouter(logger *zap.Logger, triageHandler *triage.Handler, pharmacyHandler *pharmacy.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMetrics)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-User-ID")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())

	r.Route("/api", func(r chi.Router) {
		triage.RegisterRoutes(r, triageHandler)
		pharmacy.RegisterRoutes(r, pharmacyHandler)
	})
	return r
}
