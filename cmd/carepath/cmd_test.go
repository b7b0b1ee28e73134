package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "carepath version")
}

func TestValidateCommand(t *testing.T) {
	t.Run("BuiltIn", func(t *testing.T) {
		out, _, err := execute(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, `"subscription-cancel" is valid (7 steps)`)
	})

	t.Run("File", func(t *testing.T) {
		out, _, err := execute(t, "validate", filepath.Join("..", "..", "pkg", "adapters", "graphfile", "testdata", "cancel.yaml"))
		require.NoError(t, err)
		assert.Contains(t, out, "is valid")
	})

	t.Run("Invalid", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "broken.yaml")
		content := `name: broken
steps:
  - id: first
    type: radio
    field: answer
navigation:
  entry:
    next: first
  first:
    next: ghost
`
		require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

		_, errOut, err := execute(t, "validate", file)
		require.Error(t, err)
		assert.Contains(t, errOut, "Validation failed")
		assert.Contains(t, errOut, "ghost")
	})
}

func TestGraphCommand(t *testing.T) {
	out, _, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "cancelReasons --> pauseInstead")
}

func TestAuthCommand(t *testing.T) {
	crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tok-123"}})
	}))
	defer crmServer.Close()

	t.Setenv("CRM_HOST", crmServer.URL)
	t.Setenv("CRM_USERNAME", "portal@example.com")
	t.Setenv("CRM_PASSWORD", "secret")

	out, _, err := execute(t, "auth", "--crm-endpoints", "/api/login,/api/auth/login")
	require.NoError(t, err)
	assert.Contains(t, out, "/api/auth/login")
	assert.NotContains(t, out, "tok-123")
}
