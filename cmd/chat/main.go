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

// Variante 1: histórico e perguntas livres sobre a planilha.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, server.VariantChat); err != nil {
		logger.Errorf("❌ %v", err)
		stop()
		os.Exit(1)
	}
}
