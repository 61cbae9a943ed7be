package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "connectorctl", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"subscriptions", "list"},
		{"subscriptions", "ensure"},
		{"subscriptions", "remove"},
		{"order", "send"},
		{"order", "reconcile"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "verbose", "format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "yaml", "subscriptions", "list"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestArgumentValidation(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"subscriptions", "remove", "only-id"})
	assert.Error(t, cmd.Execute())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "bad config", errors.New("missing")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "bad config: missing", WrapExitError(ExitCommandError, "bad config", errors.New("missing")).Error())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []string{"ID", "RESOURCE"}, [][]string{{"1", "purchaseOrders"}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "purchaseOrders")
}

// fakeBC serves the Microsoft token endpoint and the BC subscriptions list.
func fakeBC(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"Bearer","expires_in":3599,"access_token":"bc-token"}`))
	})
	mux.HandleFunc("GET /tenant/sandbox/api/v2.0/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bc-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[{
			"@odata.etag": "W/\"JzQ0OzE7MDsn\"",
			"subscriptionId": "sub-1",
			"notificationUrl": "https://connector.example.com/bc/purchase-order",
			"resource": "api/v2.0/companies(c0ffee)/purchaseOrders",
			"expirationDateTime": "2026-10-17T08:00:00Z"
		}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connector.toml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
[connector]
base_url = "https://connector.example.com"

[ms]
base_url = %[1]q
client_id = "client"
client_secret = "secret"

[bc]
base_url = %[1]q
tenant_id = "tenant"
environment = "sandbox"
company_id = "c0ffee"
company_name = "CRONUS NL"
shared_secret = "bc-shared-secret-value"

[tc]
integration_username = "integration@buyer.example"
integration_password = "password"
webhook_bearer_token = "tc-webhook-token-value"
`, baseURL)), 0o600))
	return path
}

func TestSubscriptionsList(t *testing.T) {
	srv := fakeBC(t)
	path := writeConfig(t, srv.URL)

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config", path, "subscriptions", "list"})
		require.NoError(t, cmd.Execute())

		assert.Contains(t, out.String(), "NOTIFICATION URL")
		assert.Contains(t, out.String(), "sub-1")
		assert.Contains(t, out.String(), "2026-10-17T08:00:00Z")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config", path, "--format", "json", "subscriptions", "list"})
		require.NoError(t, cmd.Execute())

		var subs []map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &subs))
		require.Len(t, subs, 1)
		assert.Equal(t, "sub-1", subs[0]["subscriptionId"])
	})
}

func TestMissingConfigFile(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "subscriptions", "list"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOrderReconcile_BadEventFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"order", "reconcile", path})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "reading order event failed")
}
