package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vitormoschetta/go-chat-cache/internal/logger"
	"github.com/vitormoschetta/go-chat-cache/internal/model"
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
	"github.com/vitormoschetta/go-chat-cache/internal/service"
)

// SessionHeader permite escolher a sessão sem alterar o corpo da requisição.
const SessionHeader = "X-Session-ID"

// ChatService é o que os handlers precisam do serviço de chat.
type ChatService interface {
	History(ctx context.Context, sessionID string) []provider.Turn
	OpenSession(ctx context.Context) (string, error)
	Ask(ctx context.Context, sessionID, pergunta string) (service.Output, error)
	SuggestStrategies(ctx context.Context, sessionID, motivo string) (service.StrategiesOutput, error)
	ExpandStrategy(ctx context.Context, sessionID, estrategia string) (service.Output, error)
}

// messages são os textos fixos devolvidos ao cliente para cada rota.
type messages struct {
	required string
	failed   string
}

var (
	perguntarMessages   = messages{required: "Pergunta é obrigatória.", failed: "Erro ao processar a pergunta."}
	estrategiasMessages = messages{required: "Motivo é obrigatório.", failed: "Erro ao gerar as estratégias."}
	aprofundarMessages  = messages{required: "Estratégia é obrigatória.", failed: "Erro ao aprofundar a estratégia."}
)

const (
	sessionLimitMessage  = "Limite de sessões atingido."
	sessionFailedMessage = "Erro ao criar a sessão."
)

// Handler contém as dependências necessárias para os handlers HTTP
type Handler struct {
	chat ChatService
}

// NewHandler cria uma nova instância do Handler
func NewHandler(chat ChatService) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	return &Handler{chat: chat}, nil
}

// HandleHistorico retorna o histórico da sessão (GET /)
func (h *Handler) HandleHistorico(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFrom(r, "")
	writeJSON(w, http.StatusOK, model.HistoricoResponse{
		Historico: h.chat.History(r.Context(), sessionID),
		SessionID: effectiveSessionID(sessionID),
	})
}

// HandleHealth retorna o status de saúde do servidor
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

// HandleSessao abre uma sessão nova e devolve o id (POST /sessoes)
func (h *Handler) HandleSessao(w http.ResponseWriter, r *http.Request) {
	id, err := h.chat.OpenSession(r.Context())
	if err != nil {
		writeServiceError(w, err, messages{required: sessionFailedMessage, failed: sessionFailedMessage})
		return
	}
	writeJSON(w, http.StatusCreated, model.SessaoResponse{SessionID: id})
}

// HandlePerguntar envia a pergunta do usuário ao modelo (POST /perguntar)
func (h *Handler) HandlePerguntar(w http.ResponseWriter, r *http.Request) {
	var req model.PerguntaRequest
	decodeBody(r, &req)

	out, err := h.chat.Ask(r.Context(), sessionFrom(r, req.SessionID), req.Pergunta)
	if err != nil {
		writeServiceError(w, err, perguntarMessages)
		return
	}
	writeJSON(w, http.StatusOK, model.RespostaResponse{Resposta: out.Text, SessionID: out.SessionID})
}

// HandleEstrategias pede seis estratégias para o motivo informado (POST /estrategias)
func (h *Handler) HandleEstrategias(w http.ResponseWriter, r *http.Request) {
	var req model.EstrategiasRequest
	decodeBody(r, &req)

	out, err := h.chat.SuggestStrategies(r.Context(), sessionFrom(r, req.SessionID), req.Motivo)
	if err != nil {
		writeServiceError(w, err, estrategiasMessages)
		return
	}
	writeJSON(w, http.StatusOK, model.RespostaResponse{
		Resposta:  out.Text,
		SessionID: out.SessionID,
		Sugestoes: out.Suggestions,
	})
}

// HandleAprofundar pede vantagens e desvantagens de uma estratégia (POST /aprofundar_estrategia)
func (h *Handler) HandleAprofundar(w http.ResponseWriter, r *http.Request) {
	var req model.AprofundarRequest
	decodeBody(r, &req)

	out, err := h.chat.ExpandStrategy(r.Context(), sessionFrom(r, req.SessionID), req.Estrategia)
	if err != nil {
		writeServiceError(w, err, aprofundarMessages)
		return
	}
	writeJSON(w, http.StatusOK, model.RespostaResponse{Resposta: out.Text, SessionID: out.SessionID})
}

// decodeBody ignora corpos inválidos: o campo obrigatório fica vazio e a validação responde 400.
func decodeBody(r *http.Request, dst any) {
	if r.Body == nil {
		return
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debugf("Error parsing JSON: %v", err)
	}
}

// sessionFrom escolhe o id da sessão: header, depois corpo, depois query string.
func sessionFrom(r *http.Request, bodyID string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(bodyID); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("session_id"))
}

func effectiveSessionID(id string) string {
	if id == "" {
		return service.DefaultSessionID
	}
	return id
}

func writeServiceError(w http.ResponseWriter, err error, msgs messages) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.Errorf("unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: msgs.failed})
		return
	}
	switch svcErr.Code {
	case service.ErrorValidation:
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: msgs.required})
	case service.ErrorSessionLimit:
		writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{Error: sessionLimitMessage})
	default:
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: msgs.failed})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}
