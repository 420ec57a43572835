// mockagent is a local stand-in for the agent backend: it streams scripted
// retrieval scenarios over the event-stream protocol and serves the PII
// pre-screen and speech synthesis collaborator endpoints.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/kestrelview/kestrel/internal/server"
	"github.com/kestrelview/kestrel/internal/telemetry"
)

func main() {
	port := flag.Int("port", 8080, "listen port")
	tracing := flag.Bool("tracing", false, "enable stdout trace export")
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *tracing {
		shutdown, err := telemetry.InitTracer("mockagent", logger)
		if err != nil {
			logger.Error("failed to init tracing", slog.String("error", err.Error()))
		} else {
			defer shutdown(context.Background())
		}
	}

	srv := server.New(*port, logger)

	h := &handlers{logger: logger}
	srv.Router.Post("/v1/ask", h.handleAsk)
	srv.Router.Post("/v1/prescreen", h.handlePrescreen)
	srv.Router.Post("/v1/speech", h.handleSpeech)

	if err := srv.Start(); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
