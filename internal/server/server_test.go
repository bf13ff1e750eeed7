package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitormoschetta/go-chat-cache/internal/provider/fake"
	"github.com/vitormoschetta/go-chat-cache/internal/service"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alunos.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInitialize_Ready(t *testing.T) {
	p := fake.New(nil)
	path := writeCSV(t, "nome,faltas\nAna,3\nBruno,10\n")

	st := Initialize(context.Background(), p, path, 10)
	require.True(t, st.Ready())
	require.NoError(t, st.Reason)
	require.Equal(t, 2, st.Records)
	require.Equal(t, `[{"nome":"Ana","faltas":"3"},{"nome":"Bruno","faltas":"10"}]`, p.Content())
	require.Equal(t, "cachedContents/fake-1", st.Handle.Name)

	_, ok := st.Sessions.Get(service.DefaultSessionID)
	require.True(t, ok)
	created, opened, _ := p.Counts()
	require.Equal(t, 1, created)
	require.Equal(t, 1, opened)
}

func TestInitialize_MissingFile(t *testing.T) {
	p := fake.New(nil)

	st := Initialize(context.Background(), p, filepath.Join(t.TempDir(), "x.csv"), 10)
	require.Equal(t, PhaseFailed, st.Phase)
	require.Error(t, st.Reason)
	require.Nil(t, st.Sessions)
	created, _, _ := p.Counts()
	require.Zero(t, created)
}

func TestInitialize_ProviderRejects(t *testing.T) {
	p := fake.New(nil)
	p.CreateErr = errors.New("payload too large")

	st := Initialize(context.Background(), p, writeCSV(t, "a\n1\n"), 10)
	require.False(t, st.Ready())
	require.ErrorIs(t, st.Reason, p.CreateErr)
}

func TestInitialize_SessionFailureReleasesCache(t *testing.T) {
	p := fake.New(nil)
	p.OpenErr = errors.New("chat unavailable")

	st := Initialize(context.Background(), p, writeCSV(t, "a\n1\n"), 10)
	require.False(t, st.Ready())
	_, _, released := p.Counts()
	require.Equal(t, 1, released)
}

func stubHandlers() Handlers {
	named := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, name)
		}
	}
	return Handlers{
		Historico:   named("historico"),
		Health:      named("health"),
		Sessao:      named("sessao"),
		Perguntar:   named("perguntar"),
		Estrategias: named("estrategias"),
		Aprofundar:  named("aprofundar"),
	}
}

func TestSetupRouter_Variants(t *testing.T) {
	cases := []struct {
		variant Variant
		method  string
		path    string
		code    int
		body    string
	}{
		{VariantChat, http.MethodGet, "/", http.StatusOK, "historico"},
		{VariantChat, http.MethodPost, "/perguntar", http.StatusOK, "perguntar"},
		{VariantChat, http.MethodPost, "/sessoes", http.StatusOK, "sessao"},
		{VariantChat, http.MethodPost, "/estrategias", http.StatusNotFound, ""},
		{VariantChat, http.MethodPost, "/aprofundar_estrategia", http.StatusNotFound, ""},
		{VariantChat, http.MethodGet, "/perguntar", http.StatusMethodNotAllowed, ""},
		{VariantEstrategias, http.MethodPost, "/estrategias", http.StatusOK, "estrategias"},
		{VariantEstrategias, http.MethodPost, "/aprofundar_estrategia", http.StatusOK, "aprofundar"},
		{VariantEstrategias, http.MethodGet, "/health", http.StatusOK, "health"},
	}
	for _, tc := range cases {
		t.Run(tc.variant.String()+" "+tc.method+" "+tc.path, func(t *testing.T) {
			s := NewServer(tc.variant, Options{})
			s.SetupRouter(stubHandlers())

			rec := httptest.NewRecorder()
			s.Router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			require.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				require.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	s := NewServer(VariantChat, Options{ShutdownTimeout: time.Second})
	s.SetupRouter(stubHandlers())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "health", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_RequiresRouter(t *testing.T) {
	err := NewServer(VariantChat, Options{Addr: "127.0.0.1:0"}).Start(context.Background())
	require.Error(t, err)
}

func TestStart_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(VariantChat, Options{Addr: ln.Addr().String()})
	s.SetupRouter(stubHandlers())
	err = s.Start(context.Background())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "listen"))
}

func TestVariantString(t *testing.T) {
	require.Equal(t, "chat", VariantChat.String())
	require.Equal(t, "estrategias", VariantEstrategias.String())
	require.Equal(t, "variant(9)", Variant(9).String())
}
