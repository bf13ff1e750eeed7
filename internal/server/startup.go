package server

import (
	"context"
	"fmt"

	"github.com/vitormoschetta/go-chat-cache/internal/dataset"
	"github.com/vitormoschetta/go-chat-cache/internal/logger"
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
	"github.com/vitormoschetta/go-chat-cache/internal/service"
)

// Phase é o resultado da fase de inicialização.
type Phase string

const (
	PhaseReady  Phase = "ready"
	PhaseFailed Phase = "failed"
)

// Startup descreve o resultado de Initialize. Em PhaseFailed, Reason traz a causa
// e os demais campos ficam vazios.
type Startup struct {
	Phase    Phase
	Reason   error
	Handle   provider.ContextHandle
	Records  int
	Sessions *service.SessionManager
}

// Ready informa se o servidor pode começar a aceitar conexões.
func (s Startup) Ready() bool {
	return s.Phase == PhaseReady
}

func failed(reason error) Startup {
	return Startup{Phase: PhaseFailed, Reason: reason}
}

// Initialize carrega a planilha, envia-a ao cache do provedor e abre a sessão padrão.
// Nada é reaproveitado de uma tentativa que falhou.
func Initialize(ctx context.Context, p provider.Provider, csvPath string, maxSessions int) Startup {
	records, err := dataset.Load(csvPath)
	if err != nil {
		return failed(fmt.Errorf("load dataset: %w", err))
	}
	logger.Infof("📄 Loaded %d records from %s", len(records), csvPath)

	content, err := dataset.Serialize(records)
	if err != nil {
		return failed(err)
	}

	handle, err := p.CreateCachedContext(ctx, content)
	if err != nil {
		return failed(fmt.Errorf("create cached context: %w", err))
	}

	sessions := service.NewSessionManager(p, handle, maxSessions)
	if _, err := sessions.GetOrCreate(ctx, service.DefaultSessionID); err != nil {
		if relErr := p.ReleaseCachedContext(ctx, handle); relErr != nil {
			logger.Warnf("failed to release cached context %s: %v", handle.Name, relErr)
		}
		return failed(fmt.Errorf("open default session: %w", err))
	}

	return Startup{
		Phase:    PhaseReady,
		Handle:   handle,
		Records:  len(records),
		Sessions: sessions,
	}
}
