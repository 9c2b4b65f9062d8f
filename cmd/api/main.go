package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/config"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/handler"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/customer"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/ai"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/intake"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/verification"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded, using system environment only", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// The narrator phrases replies; decisions never depend on it. When the
	// model is unconfigured or failing, fixed templates carry the journey.
	var narrator *ai.Service
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		narrator, err = ai.NewService(ctx, cfg.AI, log)
		if err != nil {
			log.Warn("narrator unavailable, using fixed templates", "err", err)
			narrator = nil
		} else {
			chatModel = narrator.ChatModel()
			log.Info("narrator initialized", "model", cfg.AI.Model)
		}
	} else {
		log.Info("ark credentials not configured, using fixed templates")
	}

	intakeSvc, err := intake.NewService(ctx, chatModel, log)
	if err != nil {
		log.Error("failed to initialize intake service", "err", err)
		os.Exit(1)
	}

	renderer, err := sanction.NewLetterRenderer(cfg.Letters.Dir)
	if err != nil {
		log.Error("failed to prepare letter directory", "dir", cfg.Letters.Dir, "err", err)
		os.Exit(1)
	}

	policy := underwriting.Policy{
		MinCreditScore: cfg.Loan.MinCreditScore,
		MaxMultiplier:  cfg.Loan.MaxMultiplier,
		MaxDTIRatio:    cfg.Loan.MaxDTIRatio,
		AnnualRatePct:  cfg.Loan.DefaultAnnualPct,
	}

	orch := orchestrator.New(
		session.NewStore(),
		intakeSvc,
		verification.New(customer.NewMemoryDirectory(customer.Seed()), log),
		underwriting.NewEvaluator(policy),
		sanction.New(renderer, log),
		phraserOrNil(narrator),
		log,
	)

	router := handler.NewRouter(orch, log)
	startServer(ctx, log, cfg.Server, router)
}

// phraserOrNil keeps the orchestrator's nil check meaningful: a typed nil
// *ai.Service must not masquerade as a usable Phraser.
func phraserOrNil(narrator *ai.Service) orchestrator.Phraser {
	if narrator == nil {
		return nil
	}
	return narrator
}

func startServer(ctx context.Context, log *slog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("loan journey backend listening", "addr", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Error("server error", "err", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
