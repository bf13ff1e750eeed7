package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/vitormoschetta/go-chat-cache/internal/provider"
)

// DefaultSessionID é usada quando a requisição não informa sessão.
const DefaultSessionID = "default"

// ErrTooManySessions é devolvido quando o limite de sessões abertas foi atingido.
var ErrTooManySessions = errors.New("session limit reached")

// ChatSession representa uma conversa HTTP ligada ao contexto em cache
type ChatSession struct {
	ID     string
	Handle provider.ContextHandle
	Mu     sync.Mutex

	chat provider.Session
}

// History retorna os turnos já trocados nesta sessão.
func (s *ChatSession) History() []provider.Turn {
	return s.chat.History()
}

// Send envia text e espera a resposta. Envios da mesma sessão são serializados.
func (s *ChatSession) Send(ctx context.Context, text string) (string, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.chat.Send(ctx, text)
}

// SessionManager gerencia as sessões de conversação HTTP
type SessionManager struct {
	provider provider.Provider
	handle   provider.ContextHandle
	max      int

	sessions map[string]*ChatSession
	opening  int
	mu       sync.RWMutex
	group    singleflight.Group
}

func NewSessionManager(p provider.Provider, handle provider.ContextHandle, maxSessions int) *SessionManager {
	return &SessionManager{
		provider: p,
		handle:   handle,
		max:      maxSessions,
		sessions: make(map[string]*ChatSession),
	}
}

// Get obtém uma sessão existente
func (sm *SessionManager) Get(sessionID string) (*ChatSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[normalizeID(sessionID)]
	return s, ok
}

// GetOrCreate obtém uma sessão existente ou abre uma nova no provedor.
// Chamadas simultâneas para o mesmo id abrem uma única sessão.
func (sm *SessionManager) GetOrCreate(ctx context.Context, sessionID string) (*ChatSession, error) {
	sessionID = normalizeID(sessionID)
	if s, ok := sm.Get(sessionID); ok {
		return s, nil
	}

	v, err, _ := sm.group.Do(sessionID, func() (any, error) {
		if s, ok := sm.Get(sessionID); ok {
			return s, nil
		}
		if err := sm.reserve(); err != nil {
			return nil, err
		}
		chat, err := sm.provider.OpenSession(ctx, sm.handle)

		sm.mu.Lock()
		defer sm.mu.Unlock()
		sm.opening--
		if err != nil {
			return nil, err
		}
		s := &ChatSession{
			ID:     sessionID,
			Handle: sm.handle,
			chat:   chat,
		}
		sm.sessions[sessionID] = s
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ChatSession), nil
}

// Len retorna quantas sessões estão abertas.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// reserve ocupa uma vaga para uma sessão que ainda está sendo aberta.
// Sessões em abertura contam para o limite.
func (sm *SessionManager) reserve() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.max > 0 && len(sm.sessions)+sm.opening >= sm.max {
		return ErrTooManySessions
	}
	sm.opening++
	return nil
}

// NewID gera um identificador de sessão.
func NewID() string {
	return uuid.NewString()
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}
