package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitormoschetta/go-chat-cache/internal/app"
	"github.com/vitormoschetta/go-chat-cache/internal/logger"
	"github.com/vitormoschetta/go-chat-cache/internal/server"
)

// Variante 2: além das perguntas, sugere e aprofunda estratégias contra a evasão.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, server.VariantEstrategias); err != nil {
		logger.Errorf("❌ %v", err)
		stop()
		os.Exit(1)
	}
}
