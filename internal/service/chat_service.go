package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vitormoschetta/go-chat-cache/internal/audit"
	"github.com/vitormoschetta/go-chat-cache/internal/logger"
	"github.com/vitormoschetta/go-chat-cache/internal/prompt"
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
	"github.com/vitormoschetta/go-chat-cache/internal/suggestion"
)

// Nomes das operações, usados no log de auditoria.
const (
	OpPerguntar            = "perguntar"
	OpEstrategias          = "estrategias"
	OpAprofundarEstrategia = "aprofundar_estrategia"
)

// auditTimeout limita a gravação da auditoria, que não depende do contexto da requisição.
const auditTimeout = 5 * time.Second

// ChatService traduz cada operação em um prompt e o envia à sessão do chamador.
type ChatService struct {
	sessions *SessionManager
	prompts  prompt.Builder
	audit    audit.Recorder
	now      func() time.Time
}

func NewChatService(sessions *SessionManager, prompts prompt.Builder, recorder audit.Recorder) (*ChatService, error) {
	if sessions == nil {
		return nil, errors.New("service: session manager must not be nil")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &ChatService{
		sessions: sessions,
		prompts:  prompts,
		audit:    recorder,
		now:      time.Now,
	}, nil
}

// Output é a resposta do modelo, sem alterações.
type Output struct {
	SessionID string
	Text      string
}

// StrategiesOutput acrescenta as sugestões estruturadas quando a resposta passa na validação.
type StrategiesOutput struct {
	Output
	Suggestions []suggestion.Suggestion
}

// History devolve o histórico da sessão. Sessão desconhecida tem histórico vazio.
func (s *ChatService) History(_ context.Context, sessionID string) []provider.Turn {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return []provider.Turn{}
	}
	turns := sess.History()
	if turns == nil {
		return []provider.Turn{}
	}
	return turns
}

// OpenSession cria uma sessão nova com id gerado.
func (s *ChatService) OpenSession(ctx context.Context) (string, error) {
	sess, err := s.sessions.GetOrCreate(ctx, NewID())
	if err != nil {
		return "", s.sessionError(err)
	}
	return sess.ID, nil
}

func (s *ChatService) Ask(ctx context.Context, sessionID, pergunta string) (Output, error) {
	pergunta = strings.TrimSpace(pergunta)
	if pergunta == "" {
		return Output{}, newError(ErrorValidation, "empty_pergunta", nil)
	}
	return s.send(ctx, OpPerguntar, sessionID, s.prompts.Question(pergunta))
}

func (s *ChatService) SuggestStrategies(ctx context.Context, sessionID, motivo string) (StrategiesOutput, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return StrategiesOutput{}, newError(ErrorValidation, "empty_motivo", nil)
	}
	out, err := s.send(ctx, OpEstrategias, sessionID, s.prompts.Strategies(motivo))
	if err != nil {
		return StrategiesOutput{}, err
	}
	items, perr := suggestion.Parse(out.Text)
	if perr != nil {
		logger.Warnf("⚠️ Session %s: strategies response did not match the expected format: %v", out.SessionID, perr)
		return StrategiesOutput{Output: out}, nil
	}
	return StrategiesOutput{Output: out, Suggestions: items}, nil
}

func (s *ChatService) ExpandStrategy(ctx context.Context, sessionID, estrategia string) (Output, error) {
	estrategia = strings.TrimSpace(estrategia)
	if estrategia == "" {
		return Output{}, newError(ErrorValidation, "empty_estrategia", nil)
	}
	return s.send(ctx, OpAprofundarEstrategia, sessionID, s.prompts.Expand(estrategia))
}

func (s *ChatService) send(ctx context.Context, op, sessionID, text string) (Output, error) {
	sess, err := s.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return Output{}, s.sessionError(err)
	}

	logger.Infof("Processing %s in session %s", op, sess.ID)
	start := s.now()
	reply, sendErr := sess.Send(ctx, text)
	ex := audit.Exchange{
		SessionID: sess.ID,
		Operation: op,
		Prompt:    text,
		Response:  reply,
		Latency:   s.now().Sub(start),
		CreatedAt: start,
	}
	if sendErr != nil {
		ex.Error = sendErr.Error()
	}
	s.record(ctx, ex)

	if sendErr != nil {
		logger.Errorf("❌ Error processing %s in session %s: %v", op, sess.ID, sendErr)
		return Output{}, newError(ErrorUpstream, op+"_failed", sendErr)
	}
	logger.Debugf("Model response in session %s: %s", sess.ID, reply)
	return Output{SessionID: sess.ID, Text: reply}, nil
}

// record grava ex mesmo quando a requisição já foi cancelada ou estourou o timeout.
func (s *ChatService) record(ctx context.Context, ex audit.Exchange) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.audit.Record(ctx, ex); err != nil {
		logger.Warnf("audit record failed for session %s: %v", ex.SessionID, err)
	}
}

func (s *ChatService) sessionError(err error) error {
	if errors.Is(err, ErrTooManySessions) {
		return newError(ErrorSessionLimit, "session_limit", err)
	}
	return newError(ErrorUpstream, "open_session_failed", err)
}
