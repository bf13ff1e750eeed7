// Package fake implementa provider.Provider em memória, para testes e desenvolvimento offline.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vitormoschetta/go-chat-cache/internal/provider"
)

// ReplyFunc gera a resposta do modelo para o texto enviado.
type ReplyFunc func(text string) (string, error)

// Echo responde repetindo o texto recebido.
func Echo(text string) (string, error) {
	return "Entendido. (fake) Você disse: " + text, nil
}

// Provider guarda o conteúdo em cache e conta as chamadas recebidas.
type Provider struct {
	Reply     ReplyFunc
	CreateErr error
	OpenErr   error
	TTL       time.Duration
	Now       func() time.Time

	mu       sync.Mutex
	content  string
	created  int
	opened   int
	released int
	sessions []*Session
}

func New(reply ReplyFunc) *Provider {
	if reply == nil {
		reply = Echo
	}
	return &Provider{Reply: reply}
}

func (p *Provider) CreateCachedContext(_ context.Context, content string) (provider.ContextHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CreateErr != nil {
		return provider.ContextHandle{}, p.CreateErr
	}
	p.created++
	p.content = content
	h := provider.ContextHandle{
		Name:        fmt.Sprintf("cachedContents/fake-%d", p.created),
		Model:       "fake-model",
		DisplayName: "fake",
	}
	if p.TTL > 0 {
		h.ExpireTime = p.now().Add(p.TTL)
	}
	return h, nil
}

func (p *Provider) OpenSession(_ context.Context, handle provider.ContextHandle) (provider.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	p.opened++
	s := &Session{provider: p, handle: handle}
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *Provider) ReleaseCachedContext(_ context.Context, _ provider.ContextHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
	return nil
}

// Content retorna o último conteúdo enviado para o cache.
func (p *Provider) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

// Counts retorna quantos caches foram criados, sessões abertas e caches liberados.
func (p *Provider) Counts() (created, opened, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created, p.opened, p.released
}

// Sent retorna todos os textos enviados, em todas as sessões, na ordem de cada sessão.
func (p *Provider) Sent() []string {
	p.mu.Lock()
	sessions := append([]*Session(nil), p.sessions...)
	p.mu.Unlock()

	var out []string
	for _, s := range sessions {
		out = append(out, s.Sent()...)
	}
	return out
}

func (p *Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ErrCacheExpired imita a recusa do provedor quando o contexto em cache venceu.
var ErrCacheExpired = errors.New("fake: cached content expired")

// Session acumula o histórico como o chat do Gemini: só grava turnos de envios bem-sucedidos.
type Session struct {
	provider *Provider
	handle   provider.ContextHandle

	mu      sync.Mutex
	history []provider.Turn
	sent    []string
}

func (s *Session) Send(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.handle.Expired(s.provider.now()) {
		return "", ErrCacheExpired
	}

	s.mu.Lock()
	s.sent = append(s.sent, text)
	s.mu.Unlock()

	reply, err := s.provider.Reply(text)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.history = append(s.history, provider.NewTurn(provider.RoleUser, text), provider.NewTurn(provider.RoleModel, reply))
	s.mu.Unlock()
	return reply, nil
}

func (s *Session) History() []provider.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Sent retorna os textos enviados por esta sessão, inclusive os que falharam.
func (s *Session) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}
