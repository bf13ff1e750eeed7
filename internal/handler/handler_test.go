package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitormoschetta/go-chat-cache/internal/model"
	"github.com/vitormoschetta/go-chat-cache/internal/prompt"
	"github.com/vitormoschetta/go-chat-cache/internal/provider"
	"github.com/vitormoschetta/go-chat-cache/internal/provider/fake"
	"github.com/vitormoschetta/go-chat-cache/internal/service"
)

func newTestHandler(t *testing.T, reply fake.ReplyFunc) (*Handler, *fake.Provider) {
	t.Helper()
	p := fake.New(reply)
	h, err := p.CreateCachedContext(context.Background(), "[]")
	require.NoError(t, err)
	svc, err := service.NewChatService(service.NewSessionManager(p, h, 10), prompt.Default(), nil)
	require.NoError(t, err)
	handler, err := NewHandler(svc)
	require.NoError(t, err)
	return handler, p
}

func do(t *testing.T, fn http.HandlerFunc, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func parseBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHistorico_EmptyBeforeAnyCall(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := do(t, h.HandleHistorico, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"historico":[],"session_id":"default"}`, rec.Body.String())
}

func TestPerguntar_HappyPath(t *testing.T) {
	h, p := newTestHandler(t, func(string) (string, error) { return "Olá! Como posso ajudar?", nil })

	rec := do(t, h.HandlePerguntar, http.MethodPost, "/perguntar", `{"pergunta":"oi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	out := parseBody[model.RespostaResponse](t, rec)
	require.Equal(t, "Olá! Como posso ajudar?", out.Resposta)
	require.Equal(t, service.DefaultSessionID, out.SessionID)
	require.Equal(t, []string{"oi"}, p.Sent())

	hist := parseBody[model.HistoricoResponse](t, do(t, h.HandleHistorico, http.MethodGet, "/", "", nil))
	require.Len(t, hist.Historico, 2)
	require.Equal(t, provider.RoleUser, hist.Historico[0].Role)
	require.Equal(t, "oi", hist.Historico[0].Text())
}

func TestRequiredFields(t *testing.T) {
	h, p := newTestHandler(t, nil)
	cases := []struct {
		name string
		fn   http.HandlerFunc
		body string
		want string
	}{
		{name: "perguntar missing", fn: h.HandlePerguntar, body: `{}`, want: "Pergunta é obrigatória."},
		{name: "perguntar invalid json", fn: h.HandlePerguntar, body: `not-json`, want: "Pergunta é obrigatória."},
		{name: "perguntar empty body", fn: h.HandlePerguntar, body: ``, want: "Pergunta é obrigatória."},
		{name: "estrategias blank", fn: h.HandleEstrategias, body: `{"motivo":"  "}`, want: "Motivo é obrigatório."},
		{name: "aprofundar missing", fn: h.HandleAprofundar, body: `{"motivo":"x"}`, want: "Estratégia é obrigatória."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, tc.fn, http.MethodPost, "/", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.want, parseBody[model.ErrorResponse](t, rec).Error)
		})
	}
	require.Empty(t, p.Sent())
}

func TestUpstreamFailure_Returns500WithStaticMessage(t *testing.T) {
	h, _ := newTestHandler(t, func(string) (string, error) { return "", errors.New("api key invalid: secret details") })

	cases := []struct {
		fn   http.HandlerFunc
		body string
		want string
	}{
		{fn: h.HandlePerguntar, body: `{"pergunta":"oi"}`, want: "Erro ao processar a pergunta."},
		{fn: h.HandleEstrategias, body: `{"motivo":"financeiro"}`, want: "Erro ao gerar as estratégias."},
		{fn: h.HandleAprofundar, body: `{"estrategia":"Tutoria"}`, want: "Erro ao aprofundar a estratégia."},
	}
	for _, tc := range cases {
		rec := do(t, tc.fn, http.MethodPost, "/", tc.body, nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, tc.want, parseBody[model.ErrorResponse](t, rec).Error)
		require.NotContains(t, rec.Body.String(), "secret")
	}
}

func TestEstrategias_ReturnsVerbatimAndParsed(t *testing.T) {
	var items []string
	for i := 1; i <= 6; i++ {
		items = append(items, fmt.Sprintf(`{"titulo":"T%d","descricao":"D%d","impacto":"I%d"}`, i, i, i))
	}
	raw := "[" + strings.Join(items, ",") + "]"
	h, p := newTestHandler(t, func(string) (string, error) { return raw, nil })

	rec := do(t, h.HandleEstrategias, http.MethodPost, "/estrategias", `{"motivo":"financeiro"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := parseBody[model.RespostaResponse](t, rec)
	require.Equal(t, raw, out.Resposta)
	require.Len(t, out.Sugestoes, 6)
	require.Equal(t, "T1", out.Sugestoes[0].Titulo)
	require.Contains(t, p.Sent()[0], "financeiro")
}

func TestEstrategias_FreeTextHasNoSugestoes(t *testing.T) {
	h, _ := newTestHandler(t, func(string) (string, error) { return "não sei", nil })

	rec := do(t, h.HandleEstrategias, http.MethodPost, "/estrategias", `{"motivo":"financeiro"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "sugestoes")
}

func TestSessionSelection(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	do(t, h.HandlePerguntar, http.MethodPost, "/perguntar", `{"pergunta":"via header"}`, map[string]string{SessionHeader: "h1"})
	do(t, h.HandlePerguntar, http.MethodPost, "/perguntar", `{"pergunta":"via body","session_id":"b1"}`, nil)

	h1 := parseBody[model.HistoricoResponse](t, do(t, h.HandleHistorico, http.MethodGet, "/", "", map[string]string{SessionHeader: "h1"}))
	require.Equal(t, "h1", h1.SessionID)
	require.Len(t, h1.Historico, 2)
	require.Equal(t, "via header", h1.Historico[0].Text())

	b1 := parseBody[model.HistoricoResponse](t, do(t, h.HandleHistorico, http.MethodGet, "/?session_id=b1", "", nil))
	require.Len(t, b1.Historico, 2)
	require.Equal(t, "via body", b1.Historico[0].Text())

	def := parseBody[model.HistoricoResponse](t, do(t, h.HandleHistorico, http.MethodGet, "/", "", nil))
	require.Empty(t, def.Historico)
}

func TestSessao_CreatesAndIsUsable(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := do(t, h.HandleSessao, http.MethodPost, "/sessoes", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := parseBody[model.SessaoResponse](t, rec).SessionID
	require.NotEmpty(t, id)

	rec = do(t, h.HandlePerguntar, http.MethodPost, "/perguntar", `{"pergunta":"oi"}`, map[string]string{SessionHeader: id})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, parseBody[model.RespostaResponse](t, rec).SessionID)
}

type limitedChat struct {
	ChatService
}

func (limitedChat) Ask(context.Context, string, string) (service.Output, error) {
	return service.Output{}, &service.Error{Code: service.ErrorSessionLimit, Reason: "session_limit"}
}

func (limitedChat) OpenSession(context.Context) (string, error) {
	return "", errors.New("plain error")
}

func TestErrorMapping_SessionLimitAndUnknown(t *testing.T) {
	h, err := NewHandler(limitedChat{})
	require.NoError(t, err)

	rec := do(t, h.HandlePerguntar, http.MethodPost, "/perguntar", `{"pergunta":"oi"}`, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "Limite de sessões atingido.", parseBody[model.ErrorResponse](t, rec).Error)

	rec = do(t, h.HandleSessao, http.MethodPost, "/sessoes", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Erro ao criar a sessão.", parseBody[model.ErrorResponse](t, rec).Error)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	rec := do(t, h.HandleHealth, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}
