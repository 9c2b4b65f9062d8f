package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/config"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/customer"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/ai"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/intake"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/verification"
)

// journeytester drives a loan conversation against the in-process
// orchestrator, either interactively or from a script file with one
// customer message per line. Lines starting with # are ignored.
func main() {
	scriptPath := flag.String("script", "", "path to a script file; empty means interactive stdin")
	timeout := flag.Duration("timeout", 30*time.Second, "per-message timeout")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded, using system environment only", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var narrator *ai.Service
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		if narrator, err = ai.NewService(ctx, cfg.AI, log); err != nil {
			log.Warn("narrator unavailable, using fixed templates", "err", err)
			narrator = nil
		} else {
			chatModel = narrator.ChatModel()
		}
	}

	intakeSvc, err := intake.NewService(ctx, chatModel, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "intake init error: %v\n", err)
		os.Exit(1)
	}

	renderer, err := sanction.NewLetterRenderer(cfg.Letters.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "letter directory error: %v\n", err)
		os.Exit(1)
	}

	policy := underwriting.Policy{
		MinCreditScore: cfg.Loan.MinCreditScore,
		MaxMultiplier:  cfg.Loan.MaxMultiplier,
		MaxDTIRatio:    cfg.Loan.MaxDTIRatio,
		AnnualRatePct:  cfg.Loan.DefaultAnnualPct,
	}

	var phraser orchestrator.Phraser
	if narrator != nil {
		phraser = narrator
	}

	orch := orchestrator.New(
		session.NewStore(),
		intakeSvc,
		verification.New(customer.NewMemoryDirectory(customer.Seed()), log),
		underwriting.NewEvaluator(policy),
		sanction.New(renderer, log),
		phraser,
		log,
	)

	start, err := orch.StartSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("session: %s\n\n", start.SessionID)
	fmt.Printf("assistant> %s\n\n", start.Reply)

	input, closeInput, err := openInput(*scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "input error: %v\n", err)
		os.Exit(1)
	}
	defer closeInput()

	interactive := *scriptPath == ""
	scanner := bufio.NewScanner(input)

	for {
		if interactive {
			fmt.Print("customer> ")
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !interactive {
			fmt.Printf("customer> %s\n", line)
		}

		msgCtx, cancel := context.WithTimeout(ctx, *timeout)
		res, err := orch.Advance(msgCtx, start.SessionID, line)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "advance error: %v\n", err)
		}

		fmt.Printf("assistant> %s\n", res.Reply)
		fmt.Printf("           [stage: %s]\n\n", res.Stage)

		if res.DownloadAvailable {
			fmt.Printf("sanction letter: %s\n", res.ArtifactRef)
		}
	}
}

func openInput(scriptPath string) (*os.File, func(), error) {
	if scriptPath == "" {
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(scriptPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
