// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/0x0BSoD/newsRelay/internal/config"
	"github.com/0x0BSoD/newsRelay/internal/extractor"
	"github.com/0x0BSoD/newsRelay/internal/image"
	"github.com/0x0BSoD/newsRelay/internal/ledger"
	"github.com/0x0BSoD/newsRelay/internal/logger"
	"github.com/0x0BSoD/newsRelay/internal/markup"
	"github.com/0x0BSoD/newsRelay/internal/model"
	"github.com/0x0BSoD/newsRelay/internal/pipeline"
	"github.com/0x0BSoD/newsRelay/internal/publisher"
	"github.com/0x0BSoD/newsRelay/internal/reporter"
	"github.com/0x0BSoD/newsRelay/internal/scheduler"
	"github.com/0x0BSoD/newsRelay/internal/source"
	"github.com/0x0BSoD/newsRelay/internal/summary"
)

func main() {
	if err := run(); err != nil {
		slog.Error("news relay stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultFiles...)
	if err != nil {
		return err
	}
	logger.New(cfg.LogLevel)

	var botAPI *tgbotapi.BotAPI
	if cfg.TelegramAPIEndpoint != "" {
		botAPI, err = tgbotapi.NewBotAPIWithAPIEndpoint(cfg.TelegramBotToken, cfg.TelegramAPIEndpoint)
	} else {
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	}
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}

	channel, err := publisher.NewTelegram(botAPI, cfg.TelegramChannelID)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	published, err := ledger.Open(ctx, cfg.LedgerPath, cfg.LedgerDSN)
	if err != nil {
		return err
	}
	defer published.Close()

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	summarizer := summary.NewClient(gen, summary.Options{
		Mode:        cfg.AIMode,
		Language:    cfg.TargetLanguage,
		Hashtags:    cfg.AIHashtags,
		CatchyTitle: cfg.AICatchyTitle,
		Instruction: lo.Ternary(cfg.AIType == "gemini", cfg.AIPrompt, ""),
	})

	sources := lo.Map(cfg.Sources(), func(s model.Source, _ int) pipeline.Source {
		src := source.NewRSSSourceFromModel(s)
		src.Timeout = cfg.FetchTimeout
		src.MaxEntries = cfg.MaxEntries
		src.FilterKeywords = cfg.FilterKeywords
		return src
	})

	relay := pipeline.New(
		sources,
		extractor.New(cfg.FetchTimeout, source.BrowserUserAgent),
		summarizer,
		published,
		image.NewDownloader(cfg.ImageDir, cfg.ImageMaxBytes, cfg.ImageTimeout, source.BrowserUserAgent),
		channel,
		reporter.New(botAPI, cfg.TelegramAdminChatID),
		pipeline.Options{
			ContentSource:       cfg.ContentSource,
			RecordBeforeExtract: cfg.RecordMode == "before_extract",
			SendImages:          cfg.SendImages,
			ImageDir:            cfg.ImageDir,
			PostDelay:           cfg.PostDelay,
			Caption: markup.Options{
				TitleMarker:    cfg.TitleMarker,
				ReadMoreLabel:  cfg.ReadMoreLabel,
				PublishedLabel: cfg.PublishedLabel,
			},
		},
	)

	slog.Info("starting news relay",
		"feeds", len(sources),
		"ai_type", cfg.AIType,
		"ai_model", cfg.AIModel,
		"channel", cfg.TelegramChannelID,
	)

	switch {
	case cfg.Schedule != "":
		sched := scheduler.New()
		if err := sched.Add(cfg.Schedule, func() { relay.Run(ctx) }); err != nil {
			return err
		}
		go serveHealth(ctx, cfg.HealthAddr)
		return ignoreCanceled(sched.Run(ctx))
	case cfg.RunInterval > 0:
		go serveHealth(ctx, cfg.HealthAddr)
		return ignoreCanceled(relay.Start(ctx, cfg.RunInterval))
	default:
		relay.Run(ctx)
		return nil
	}
}

func newGenerator(cfg config.Config) (summary.Generator, error) {
	switch cfg.AIType {
	case "gemini":
		slog.Info("using Gemini summarizer", "model", cfg.AIModel, "api", cfg.AIAPI)
		return summary.NewGeminiSummarizer(cfg.AIBaseURL, cfg.AIKey, cfg.AIModel, cfg.AIAPI, cfg.AITimeout), nil
	case "openai":
		slog.Info("using OpenAI-compatible summarizer", "model", cfg.AIModel)
		return summary.NewOpenAISummarizer(cfg.AIBaseURL, cfg.AIKey, cfg.AIPrompt, cfg.AIModel, cfg.AITimeout), nil
	case "ollama":
		slog.Info("using Ollama summarizer", "model", cfg.AIModel)
		return summary.NewOllamaSummarizer(cfg.AIBaseURL, cfg.AIPrompt, cfg.AIModel, cfg.AITimeout), nil
	default:
		return nil, fmt.Errorf("unknown ai_type %q", cfg.AIType)
	}
}

func serveHealth(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to run http server", "err", err)
		return
	}
	slog.Info("http server stopped")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		slog.Info("news relay stopped")
		return nil
	}
	return err
}
