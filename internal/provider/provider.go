// Package provider define o contrato mínimo que o serviço espera de um provedor de LLM
// com contexto em cache. O SDK concreto fica atrás dessas interfaces.
package provider

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part é um trecho de texto de um turno.
type Part struct {
	Text string `json:"text"`
}

// Turn é uma mensagem do histórico, no mesmo formato JSON devolvido pelo Gemini.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTurn cria um turno com um único trecho de texto.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

// Text concatena os trechos do turno.
func (t Turn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ContextHandle identifica o contexto em cache criado no provedor.
type ContextHandle struct {
	Name        string
	Model       string
	DisplayName string
	ExpireTime  time.Time
}

// Expired informa se o cache já venceu em now. Handles sem validade nunca expiram.
func (h ContextHandle) Expired(now time.Time) bool {
	return !h.ExpireTime.IsZero() && !now.Before(h.ExpireTime)
}

// Provider cria o contexto em cache e abre sessões de chat ligadas a ele.
type Provider interface {
	CreateCachedContext(ctx context.Context, content string) (ContextHandle, error)
	OpenSession(ctx context.Context, handle ContextHandle) (Session, error)
	ReleaseCachedContext(ctx context.Context, handle ContextHandle) error
}

// Session é uma conversa com histórico próprio. Implementações devem aceitar
// History concorrente com Send; History não espera um envio em andamento.
// Um Send que falha não deixa turnos no histórico.
type Session interface {
	Send(ctx context.Context, text string) (string, error)
	History() []Turn
}
