package commands_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/recapi/cmd/recapi/commands"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// backend is a fake records API that remembers the Authorization headers it saw.
type backend struct {
	mu    sync.Mutex
	auths []string
}

func (b *backend) handler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.auths = append(b.auths, r.Header.Get("Authorization"))
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		var data interface{}

		switch r.URL.Path {
		case "/api/health":
			data = map[string]interface{}{"status": "ok", "version": "1.0.0", "uptime": 12}
		case "/api/records/rec-1":
			data = map[string]interface{}{
				"id":        "rec-1",
				"title":     "Invoice 42",
				"status":    "active",
				"createdAt": "2026-01-01T00:00:00Z",
				"updatedAt": "2026-01-02T00:00:00Z",
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprint(w, `{"success":false,"message":"not found"}`)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"timestamp": "2026-01-01T00:00:00Z",
			"data":      data,
		})
	})
}

func (b *backend) lastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.auths) == 0 {
		return ""
	}

	return b.auths[len(b.auths)-1]
}

// setup writes a config file pointing at server and returns it.
func setup(t *testing.T, serverURL string) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	content := fmt.Sprintf("base_address: %s\ncredentials_path: %s\nretry_attempts: 0\n",
		serverURL, filepath.Join(dir, "credentials.yml"))

	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	root := commands.NewRootCommand("1.2.3", "abc123", "2026-01-01")

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.Execute()

	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	root := commands.NewRootCommand("dev", "none", "unknown")
	assert.Equal(t, "recapi", root.Use)

	for _, name := range []string{"version", "login", "logout", "records", "jobs", "imports", "health", "metrics"} {
		assert.NotNil(t, findSubcommand(root, name), "missing command %s", name)
	}

	records := findSubcommand(root, "records")
	for _, name := range []string{"get", "search", "set-status"} {
		assert.NotNil(t, findSubcommand(records, name), "missing records %s", name)
	}

	jobs := findSubcommand(root, "jobs")
	for _, name := range []string{"list", "get", "trigger", "cancel", "wait"} {
		assert.NotNil(t, findSubcommand(jobs, name), "missing jobs %s", name)
	}
}

func TestVersionCommand_JSON(t *testing.T) { //nolint:paralleltest
	configPath := setup(t, "http://127.0.0.1:1")

	out, err := run(t, configPath, "--output", "json", "version")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc123", info["commit"])
}

func TestHealthCommand(t *testing.T) { //nolint:paralleltest
	b := &backend{}
	server := httptest.NewServer(b.handler(t))
	defer server.Close()

	configPath := setup(t, server.URL)

	out, err := run(t, configPath, "--output", "json", "health")
	require.NoError(t, err)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	assert.Equal(t, "ok", health["status"])
}

func TestLoginThenRecordsGet(t *testing.T) { //nolint:paralleltest
	b := &backend{}
	server := httptest.NewServer(b.handler(t))
	defer server.Close()

	configPath := setup(t, server.URL)

	out, err := run(t, configPath, "login", "--token", "opaque-token")
	require.NoError(t, err)
	assert.Contains(t, out, "Token saved")

	out, err = run(t, configPath, "--output", "yaml", "records", "get", "rec-1")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Invoice 42")
	assert.Equal(t, "Bearer opaque-token", b.lastAuth())

	_, err = run(t, configPath, "logout")
	require.NoError(t, err)

	_, err = run(t, configPath, "records", "get", "rec-1")
	require.NoError(t, err)
	assert.Empty(t, b.lastAuth())
}

func TestRecordsGet_NotFound(t *testing.T) { //nolint:paralleltest
	b := &backend{}
	server := httptest.NewServer(b.handler(t))
	defer server.Close()

	configPath := setup(t, server.URL)

	_, err := run(t, configPath, "records", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUnsupportedOutput(t *testing.T) { //nolint:paralleltest
	configPath := setup(t, "http://127.0.0.1:1")

	_, err := run(t, configPath, "--output", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestJobsTrigger_InvalidParameter(t *testing.T) { //nolint:paralleltest
	configPath := setup(t, "http://127.0.0.1:1")

	_, err := run(t, configPath, "jobs", "trigger", "reindex", "--param", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key=value")
}
