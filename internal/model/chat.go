package model

import (
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
	"github.com/vitormoschetta/go-chat-cache/internal/suggestion"
)

// PerguntaRequest representa a requisição de POST /perguntar
type PerguntaRequest struct {
	Pergunta  string `json:"pergunta"`
	SessionID string `json:"session_id,omitempty"`
}

// EstrategiasRequest representa a requisição de POST /estrategias
type EstrategiasRequest struct {
	Motivo    string `json:"motivo"`
	SessionID string `json:"session_id,omitempty"`
}

// AprofundarRequest representa a requisição de POST /aprofundar_estrategia
type AprofundarRequest struct {
	Estrategia string `json:"estrategia"`
	SessionID  string `json:"session_id,omitempty"`
}

// RespostaResponse é a resposta das rotas de chat; Resposta é o texto do modelo sem alterações
type RespostaResponse struct {
	Resposta  string                  `json:"resposta"`
	SessionID string                  `json:"session_id,omitempty"`
	Sugestoes []suggestion.Suggestion `json:"sugestoes,omitempty"`
}

// HistoricoResponse é a resposta de GET /
type HistoricoResponse struct {
	Historico []provider.Turn `json:"historico"`
	SessionID string          `json:"session_id,omitempty"`
}

// SessaoResponse é a resposta de POST /sessoes
type SessaoResponse struct {
	SessionID string `json:"session_id"`
}

// ErrorResponse é o corpo de qualquer erro
type ErrorResponse struct {
	Error string `json:"error"`
}
