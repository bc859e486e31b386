package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/sipwell/sipwell-client/internal/devserver"
	"github.com/sipwell/sipwell-client/internal/hydration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConfig(t *testing.T) string {
	backend, err := devserver.NewServer(devserver.WithConfig(config.DevServerConfig{
		AccessTokenTTL:      time.Minute,
		RotateRefreshTokens: true,
	}))
	require.NoError(t, err)
	srv := httptest.NewServer(backend.Echo())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	content := fmt.Sprintf(`runningEnvironment: development
client:
  baseURL: %s
  timeout: 5s
auth:
  refreshPaths:
    - /api/auth/refresh
tokenStore:
  type: sqlite
  sqlitePath: %s
`, srv.URL, filepath.Join(dir, "state", "tokens.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))
	t.Setenv("CONFIG_LOCATION", dir)
	t.Setenv(passwordEnv, "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	rootCmd := createRootCmd()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCreateRootCmd(t *testing.T) {
	rootCmd := createRootCmd()
	assert.Equal(t, "sipwell", rootCmd.Use)
	names := []string{}
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, name := range []string{"login", "register", "logout", "status", "water", "reminder", "profile", "analytics", "config", "keepalive"} {
		assert.Contains(t, names, name)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("debug"))
}

func TestSessionAndWaterCommands(t *testing.T) {
	dir := setupConfig(t)

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	out, err = run(t, "register", "--email", "ana@example.com", "--password", "secret", "--weight", "70", "--activity", "low")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Registered and logged in as ana@example.com")

	out, err = run(t, "--config", dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")
	assert.Contains(t, out, "Access token expires at")

	out, err = run(t, "water", "add", "250")
	require.NoError(t, err, out)
	assert.Contains(t, out, "250 ml")

	out, err = run(t, "water", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Total: 250 / 2450 ml")

	_, err = run(t, "water", "add", "lots")
	assert.ErrorContains(t, err, "positive number")

	out, err = run(t, "profile", "--set", "weight=80")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Daily goal: 2800 ml")

	out, err = run(t, "reminder", "set", "--create", "--interval", "45")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"interval": 45`)

	out, err = run(t, "analytics", "score")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"score"`)

	out, err = run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLoginRequiresPassword(t *testing.T) {
	setupConfig(t)
	_, err := run(t, "login", "--email", "ana@example.com")
	assert.ErrorContains(t, err, "a password is required")
}

func TestLoginWithWrongPassword(t *testing.T) {
	setupConfig(t)
	_, err := run(t, "register", "--email", "ana@example.com", "--password", "secret")
	require.NoError(t, err)
	t.Setenv(passwordEnv, "wrong")
	_, err = run(t, "login", "--email", "ana@example.com")
	assert.ErrorContains(t, err, "Invalid email or password")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	setupConfig(t)
	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "runningenvironment: development")
	assert.Contains(t, out, "<redacted-0-chars>")
}

func TestParseProfileChanges(t *testing.T) {
	changes, err := parseProfileChanges([]string{"weight=72.5", "activity=high", "pregnancy=true", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, hydration.Profile{"weight": 72.5, "activity": "high", "pregnancy": true, "note": "a=b"}, changes)

	_, err = parseProfileChanges([]string{"weight"})
	assert.ErrorContains(t, err, "expected key=value")
}

func TestParseAmount(t *testing.T) {
	amount, err := parseAmount("330")
	require.NoError(t, err)
	assert.Equal(t, 330.0, amount)
	_, err = parseAmount("0")
	assert.Error(t, err)
	_, err = parseAmount("-5")
	assert.Error(t, err)
}
