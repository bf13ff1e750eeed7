// Package gemini implementa provider.Provider sobre google.golang.org/genai:
// o dataset vira um CachedContent e cada sessão é um genai.Chat ligado a ele.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/vitormoschetta/go-chat-cache/internal/logger"
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
)

// cacheAPI é o subconjunto de *genai.Caches usado aqui.
type cacheAPI interface {
	Create(ctx context.Context, model string, config *genai.CreateCachedContentConfig) (*genai.CachedContent, error)
	Delete(ctx context.Context, name string, config *genai.DeleteCachedContentConfig) (*genai.DeleteCachedContentResponse, error)
}

// chatAPI é o subconjunto de *genai.Chat usado por Session.
type chatAPI interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	History(curated bool) []*genai.Content
}

// chatOpener abre um chat; history não vazio recria um chat a partir de turnos anteriores.
type chatOpener func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatAPI, error)

// Config descreve o modelo e o cache criado na inicialização.
type Config struct {
	APIKey      string
	Model       string
	TTL         time.Duration
	DisplayName string
}

// Client é o provider.Provider do Gemini.
type Client struct {
	caches   cacheAPI
	openChat chatOpener
	model    string
	ttl      time.Duration
	display  string
}

// NewClient cria o cliente genai para a Gemini API.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	open := func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatAPI, error) {
		return gc.Chats.Create(ctx, model, config, history)
	}
	return newClient(gc.Caches, open, cfg)
}

func newClient(caches cacheAPI, open chatOpener, cfg Config) (*Client, error) {
	if caches == nil || open == nil {
		return nil, errors.New("gemini: caches and chat opener must not be nil")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	return &Client{
		caches:   caches,
		openChat: open,
		model:    model,
		ttl:      cfg.TTL,
		display:  cfg.DisplayName,
	}, nil
}

// CreateCachedContext envia content como um único turno de usuário no cache do modelo.
func (c *Client) CreateCachedContext(ctx context.Context, content string) (provider.ContextHandle, error) {
	cc, err := c.caches.Create(ctx, c.model, &genai.CreateCachedContentConfig{
		DisplayName: c.display,
		TTL:         c.ttl,
		Contents: []*genai.Content{
			genai.NewContentFromText(content, genai.RoleUser),
		},
	})
	if err != nil {
		return provider.ContextHandle{}, fmt.Errorf("gemini: create cached content: %w", err)
	}
	if cc == nil || cc.Name == "" {
		return provider.ContextHandle{}, errors.New("gemini: create cached content returned no name")
	}
	logger.Infof("💾 Cached content %s created for %s (expires %s)", cc.Name, c.model, cc.ExpireTime.Format(time.RFC3339))
	return provider.ContextHandle{
		Name:        cc.Name,
		Model:       c.model,
		DisplayName: cc.DisplayName,
		ExpireTime:  cc.ExpireTime,
	}, nil
}

// OpenSession abre um chat vazio que referencia o cache de handle.
func (c *Client) OpenSession(ctx context.Context, handle provider.ContextHandle) (provider.Session, error) {
	if handle.Name == "" {
		return nil, errors.New("gemini: context handle has no name")
	}
	model := handle.Model
	if model == "" {
		model = c.model
	}
	config := &genai.GenerateContentConfig{CachedContent: handle.Name}
	chat, err := c.openChat(ctx, model, config, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat: %w", err)
	}
	return &Session{open: c.openChat, model: model, config: config, chat: chat, turns: []provider.Turn{}}, nil
}

// ReleaseCachedContext apaga o cache no provedor antes do vencimento.
func (c *Client) ReleaseCachedContext(ctx context.Context, handle provider.ContextHandle) error {
	if handle.Name == "" {
		return nil
	}
	if _, err := c.caches.Delete(ctx, handle.Name, nil); err != nil {
		return fmt.Errorf("gemini: delete cached content %s: %w", handle.Name, err)
	}
	return nil
}

// Session adapta um genai.Chat para provider.Session.
// genai.Chat não é seguro para uso concorrente: sendMu serializa os envios e
// History lê apenas a cópia em turns, atualizada ao fim de cada envio.
type Session struct {
	open   chatOpener
	model  string
	config *genai.GenerateContentConfig

	sendMu sync.Mutex
	chat   chatAPI

	mu    sync.RWMutex
	turns []provider.Turn
}

func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	before := append([]*genai.Content(nil), s.chat.History(false)...)
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("gemini: send message: %w", err)
	}
	var out string
	if resp != nil {
		out = resp.Text()
	}
	if out == "" {
		// o chat já gravou a pergunta e uma resposta vazia
		if rbErr := s.rollback(ctx, before); rbErr != nil {
			logger.Warnf("gemini: failed to discard empty turn: %v", rbErr)
		}
		return "", errors.New("gemini: response has no text")
	}
	s.snapshot()
	return out, nil
}

func (s *Session) History() []provider.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]provider.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// rollback troca o chat por um novo com o histórico anterior ao envio. Exige sendMu.
func (s *Session) rollback(ctx context.Context, history []*genai.Content) error {
	chat, err := s.open(context.WithoutCancel(ctx), s.model, s.config, history)
	if err != nil {
		return err
	}
	s.chat = chat
	s.snapshot()
	return nil
}

// snapshot copia o histórico do chat para turns. Exige sendMu.
func (s *Session) snapshot() {
	turns := toTurns(s.chat.History(false))
	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
}

func toTurns(contents []*genai.Content) []provider.Turn {
	turns := make([]provider.Turn, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		turn := provider.Turn{Role: provider.Role(c.Role), Parts: []provider.Part{}}
		for _, p := range c.Parts {
			if p == nil || p.Text == "" {
				continue
			}
			turn.Parts = append(turn.Parts, provider.Part{Text: p.Text})
		}
		turns = append(turns, turn)
	}
	return turns
}
