package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Checker-Finance/bankin-collector/internal/sandbox"
	"github.com/Checker-Finance/bankin-collector/pkg/config"
	"github.com/Checker-Finance/bankin-collector/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("bankin-sandbox", cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.SandboxPort))
	if err != nil {
		logg.Fatalw("sandbox.listen_failed", "port", cfg.SandboxPort, "error", err)
	}

	srv := sandbox.New(logger.L(), sandbox.DefaultFixtures())
	if err := srv.Listen(ctx, ln); err != nil {
		logg.Fatalw("sandbox.serve_failed", "error", err)
	}
	logg.Info("shutting down [bankin-sandbox]...")
}
