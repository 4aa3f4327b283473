package command

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/api"
)

func fakeServer(t *testing.T, statusBody string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"job-9","status":"pending"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/chat":
			_, _ = w.Write([]byte(statusBody))
		case r.URL.Path == "/api/admin/queue":
			_, _ = w.Write([]byte(`{"backend":"postgres","pending":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAsk_PrintsReply(t *testing.T) {
	srv := fakeServer(t, `{"id":"job-9","status":"completed","result":"We sell anvils."}`)
	out, _, err := run(t, "", "--server", srv.URL, "--interval", "5ms",
		"ask", "--company", "Acme", "--website", "acme.com", "what", "do", "you", "sell?")
	require.NoError(t, err)
	assert.Equal(t, "We sell anvils.\n", out)
}

func TestAsk_FailedJobIsAnError(t *testing.T) {
	srv := fakeServer(t, `{"id":"job-9","status":"failed","error":"provider exploded"}`)
	_, errOut, err := run(t, "", "--server", srv.URL, "--interval", "5ms",
		"ask", "--company", "Acme", "--website", "acme.com", "hi")
	require.Error(t, err)
	assert.Contains(t, errOut, "provider exploded")
}

func TestAsk_RequiresCompany(t *testing.T) {
	_, _, err := run(t, "", "ask", "hi")
	assert.Error(t, err)
}

func TestChat_REPL(t *testing.T) {
	srv := fakeServer(t, `{"id":"job-9","status":"completed","result":"Plans start at $10."}`)
	out, _, err := run(t, "pricing?\n/clear\n/quit\n", "--server", srv.URL, "--interval", "5ms",
		"chat", "--company", "Acme", "--website", "acme.com")
	require.NoError(t, err)
	assert.Contains(t, out, "assistant: Plans start at $10.")
	assert.Equal(t, 2, strings.Count(out, "support specialist for Acme"), "greeting shown at start and after /clear")
}

func TestStatus_Text(t *testing.T) {
	srv := fakeServer(t, `{"id":"job-9","status":"failed","error":"boom","companyContext":{"companyName":"Acme","websiteUrl":"acme.com"}}`)
	out, _, err := run(t, "", "--server", srv.URL, "status", "job-9")
	require.NoError(t, err)
	assert.Contains(t, out, "status:  failed")
	assert.Contains(t, out, "error:   boom")
}

func TestAdminToken_IsAcceptedByAuthManager(t *testing.T) {
	out, _, err := run(t, "", "admin", "token", "--secret", "s3cret", "--ttl", "1m")
	require.NoError(t, err)
	claims, err := api.NewAuthManager("s3cret", time.Minute).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, _, err = run(t, "", "admin", "token", "--secret", "")
	assert.Error(t, err)
}

func TestAdminQueue(t *testing.T) {
	srv := fakeServer(t, `{}`)
	out, _, err := run(t, "", "--server", srv.URL, "admin", "queue", "--token", "t")
	require.NoError(t, err)
	assert.Equal(t, "backend: postgres\npending: 2\n", out)
}
