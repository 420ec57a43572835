package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/kestrelview/kestrel/internal/config"
	"github.com/kestrelview/kestrel/internal/console"
	"github.com/kestrelview/kestrel/internal/prescreen"
	"github.com/kestrelview/kestrel/internal/stream"
	"github.com/kestrelview/kestrel/internal/telemetry"
	"github.com/kestrelview/kestrel/internal/transcript"
	"github.com/kestrelview/kestrel/internal/voice"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// .env is optional; absence is not an error.
	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The TUI owns stdout, so logs go to a file to keep the screen clean.
	logger := slog.Default()
	if f, err := os.OpenFile("kestrel.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, nil))
		slog.SetDefault(logger)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer("kestrel", logger)
		if err != nil {
			logger.Error("failed to init tracing", slog.String("error", err.Error()))
		} else {
			defer shutdown(context.Background())
		}
	}

	streamClient := stream.NewClient(cfg.Backend.BaseURL,
		stream.WithLogger(logger),
		stream.WithMaxAttempts(cfg.Backend.MaxAttempts),
		stream.WithRetryBaseDelay(time.Duration(cfg.Backend.RetryBaseDelayMS)*time.Millisecond),
	)

	var screener *prescreen.Client
	if cfg.Prescreen.Enabled {
		screener = prescreen.NewClient(cfg.Prescreen.URL)
	}

	var voiceCtrl *voice.Controller
	if cfg.Voice.Enabled {
		var player voice.Player = voice.NullPlayer{}
		if cfg.Voice.PlayerCommand != "" {
			player = &voice.CmdPlayer{Command: cfg.Voice.PlayerCommand}
		}
		voiceCtrl = voice.NewController(
			voice.NewSpeechClient(cfg.Voice.SpeechURL, voice.WithSpeechHTTPClient(http.DefaultClient)),
			player,
			voice.WithLanguage(cfg.Voice.Language),
			voice.WithCacheSize(cfg.Voice.CacheSize),
			voice.WithLogger(logger),
		)
	}

	var store transcript.Store
	switch cfg.Transcript.Type {
	case "sqlite":
		s, err := transcript.NewSQLiteStore(cfg.Transcript.Path)
		if err != nil {
			logger.Error("failed to open transcript store", slog.String("error", err.Error()))
		} else {
			defer s.Close()
			store = s
		}
	case "memory":
		store = transcript.NewMemoryStore()
	}

	model := console.New(console.Options{
		Stream:         streamClient,
		Prescreen:      screener,
		Voice:          voiceCtrl,
		Store:          store,
		Ask:            cfg.Ask,
		ConversationID: "conv_" + uuid.New().String(),
		Logger:         logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("console exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
