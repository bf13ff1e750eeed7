package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vitormoschetta/go-chat-cache/internal/logger"
)

// Variant seleciona o conjunto de rotas publicado.
type Variant int

const (
	// VariantChat publica apenas GET / e POST /perguntar (além de /health e /sessoes).
	VariantChat Variant = iota + 1
	// VariantEstrategias acrescenta /estrategias e /aprofundar_estrategia.
	VariantEstrategias
)

func (v Variant) String() string {
	switch v {
	case VariantChat:
		return "chat"
	case VariantEstrategias:
		return "estrategias"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Handlers são as funções HTTP registradas no router.
type Handlers struct {
	Historico   http.HandlerFunc
	Health      http.HandlerFunc
	Sessao      http.HandlerFunc
	Perguntar   http.HandlerFunc
	Estrategias http.HandlerFunc
	Aprofundar  http.HandlerFunc
}

// Options configura o servidor HTTP.
type Options struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Server representa o servidor HTTP com todas as dependências
type Server struct {
	Variant Variant
	Router  chi.Router
	opts    Options
}

// NewServer cria uma nova instância do servidor
func NewServer(variant Variant, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 120 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Server{Variant: variant, opts: opts}
}

// SetupRouter configura as rotas e middlewares do Chi
func (s *Server) SetupRouter(h Handlers) {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	// Rotas
	r.Get("/", h.Historico)
	r.Get("/health", h.Health)
	r.Post("/sessoes", h.Sessao)
	r.Post("/perguntar", h.Perguntar)

	if s.Variant == VariantEstrategias {
		r.Post("/estrategias", h.Estrategias)
		r.Post("/aprofundar_estrategia", h.Aprofundar)
	}

	s.Router = r
}

// Start abre a porta, atende até ctx ser cancelado e então encerra com graceful shutdown.
// Erros ao abrir a porta são devolvidos antes de qualquer requisição ser aceita.
func (s *Server) Start(ctx context.Context) error {
	if s.Router == nil {
		return errors.New("server: router not configured")
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve atende em ln até ctx ser cancelado.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.opts.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.banner(ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Aguardar sinal de interrupção ou falha do servidor
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Infof("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Infof("✅ Server stopped gracefully")
	return nil
}

func (s *Server) banner(addr string) {
	base := "http://localhost" + portSuffix(addr)
	block := fmt.Sprintf(`╔════════════════════════════════════════════════════╗
║   Chat com contexto em cache (Gemini)              ║
╚════════════════════════════════════════════════════╝
🚀 Servidor HTTP iniciado em %s (variante %s)
📌 Endpoints disponíveis:
   • Histórico: %s/ (GET)
   • Health:    %s/health (GET)
   • Sessões:   %s/sessoes (POST)
   • Perguntar: %s/perguntar (POST)`, addr, s.Variant, base, base, base, base)
	if s.Variant == VariantEstrategias {
		block += fmt.Sprintf(`
   • Estratégias: %s/estrategias (POST)
   • Aprofundar:  %s/aprofundar_estrategia (POST)`, base, base)
	}
	block += fmt.Sprintf(`
💡 Exemplo de uso com curl:
   curl -X POST %s/perguntar -H "Content-Type: application/json" -d '{"pergunta":"oi"}'
⚠️  Pressione Ctrl+C para parar o servidor`, base)
	logger.Banner(block)
}

func portSuffix(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return ""
	}
	return ":" + port
}
