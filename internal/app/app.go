// Package app liga configuração, provedor, serviço e servidor HTTP.
// É o ponto comum das duas variantes em cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vitormoschetta/go-chat-cache/internal/audit"
	"github.com/vitormoschetta/go-chat-cache/internal/config"
	"github.com/vitormoschetta/go-chat-cache/internal/gemini"
	"github.com/vitormoschetta/go-chat-cache/internal/handler"
	"github.com/vitormoschetta/go-chat-cache/internal/logger"
	"github.com/vitormoschetta/go-chat-cache/internal/prompt"
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
	"github.com/vitormoschetta/go-chat-cache/internal/provider/fake"
	"github.com/vitormoschetta/go-chat-cache/internal/server"
	"github.com/vitormoschetta/go-chat-cache/internal/service"
)

// App é o processo montado e pronto para Start.
type App struct {
	Config   *config.Config
	Server   *server.Server
	Startup  server.Startup
	Provider provider.Provider

	auditStore *audit.Store
}

// Run carrega .env e a configuração, monta a aplicação e atende até ctx ser cancelado.
func Run(ctx context.Context, variant server.Variant) error {
	if err := godotenv.Load(); err != nil {
		logger.Warnf("Warning: .env file not found or could not be loaded")
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	a, err := Build(ctx, cfg, p, variant)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Server.Start(ctx)
}

// Build executa a inicialização e só devolve App quando ela terminou em PhaseReady.
func Build(ctx context.Context, cfg *config.Config, p provider.Provider, variant server.Variant) (*App, error) {
	if cfg == nil || p == nil {
		return nil, errors.New("app: config and provider are required")
	}

	var (
		recorder   audit.Recorder = audit.Nop{}
		auditStore *audit.Store
	)
	if cfg.AuditDBPath != "" {
		store, err := audit.NewStore(cfg.AuditDBPath)
		if err != nil {
			return nil, err
		}
		logger.Infof("🗂️ Audit log enabled at %s", cfg.AuditDBPath)
		recorder, auditStore = store, store
	}

	st := server.Initialize(ctx, p, cfg.CSVFilePath, cfg.MaxSessions)
	if !st.Ready() {
		closeStore(auditStore)
		return nil, fmt.Errorf("startup failed: %w", st.Reason)
	}
	logger.Infof("✅ Context cache %s ready with %d records", st.Handle.Name, st.Records)

	svc, err := service.NewChatService(st.Sessions, prompt.Default(), recorder)
	if err != nil {
		closeStore(auditStore)
		return nil, err
	}
	h, err := handler.NewHandler(svc)
	if err != nil {
		closeStore(auditStore)
		return nil, err
	}

	srv := server.NewServer(variant, server.Options{
		Addr:            cfg.Addr(),
		RequestTimeout:  cfg.RequestTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	srv.SetupRouter(server.Handlers{
		Historico:   h.HandleHistorico,
		Health:      h.HandleHealth,
		Sessao:      h.HandleSessao,
		Perguntar:   h.HandlePerguntar,
		Estrategias: h.HandleEstrategias,
		Aprofundar:  h.HandleAprofundar,
	})

	return &App{
		Config:     cfg,
		Server:     srv,
		Startup:    st,
		Provider:   p,
		auditStore: auditStore,
	}, nil
}

// Close apaga o contexto em cache no provedor e fecha o log de auditoria.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := a.Provider.ReleaseCachedContext(ctx, a.Startup.Handle); err != nil {
		logger.Warnf("failed to release cached context %s: %v", a.Startup.Handle.Name, err)
	}
	closeStore(a.auditStore)
}

func newProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderFake:
		logger.Warnf("⚠️ PROVIDER=fake: respostas geradas localmente, sem chamar o Gemini")
		return fake.New(nil), nil
	default:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			TTL:         cfg.CacheTTL,
			DisplayName: cfg.CacheDisplayName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model: %w", err)
		}
		return c, nil
	}
}

func closeStore(s *audit.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warnf("failed to close audit store: %v", err)
	}
}
