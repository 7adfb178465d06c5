package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func useTempDB(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHCTL_BACKEND", "sqlite")
	t.Setenv("AUTHCTL_SQLITE_PATH", filepath.Join(t.TempDir(), "auth.db"))
	t.Setenv("AUTHCTL_LOG_LEVEL", "error")
}

func TestRegisterLoginAndSessions(t *testing.T) {
	useTempDB(t)
	const pw = "Str0ng!Pass1234\n"

	code, out, errOut := runCLI(t, pw+pw, "register", "a@x.com", "Ann")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Registered Ann")

	code, out, errOut = runCLI(t, pw, "login", "a@x.com")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Welcome back, Ann")

	code, out, _ = runCLI(t, "Wr0ng!Password1\n", "login", "a@x.com")
	assert.Equal(t, 1, code)
	assert.NotContains(t, out, "Welcome")

	code, first, _ := runCLI(t, "", "device-id")
	require.Equal(t, 0, code)
	_, second, _ := runCLI(t, "", "device-id")
	assert.Equal(t, first, second, "device id must persist across runs")
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	useTempDB(t)

	code, _, errOut := runCLI(t, "Str0ng!Pass1234\nStr0ng!Pass9999\n", "register", "a@x.com", "Ann")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "do not match")
}

func TestResetRequestNeverRevealsAccounts(t *testing.T) {
	useTempDB(t)

	code, out, _ := runCLI(t, "", "reset-request", "nobody@x.com")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "If that email is registered")
}

func TestResetTokenOnlyLoggedOutsideProduction(t *testing.T) {
	useTempDB(t)
	t.Setenv("AUTHCTL_LOG_LEVEL", "debug")
	const pw = "Str0ng!Pass1234\n"

	code, _, errOut := runCLI(t, pw+pw, "register", "a@x.com", "Ann")
	require.Equal(t, 0, code, errOut)

	code, _, errOut = runCLI(t, "", "reset-request", "a@x.com")
	require.Equal(t, 0, code)
	assert.NotContains(t, errOut, "password reset token issued")
	assert.NotContains(t, errOut, "a@x.com")

	t.Setenv("AUTHCTL_PRODUCTION", "false")
	code, _, errOut = runCLI(t, "", "reset-request", "a@x.com")
	require.Equal(t, 0, code)
	assert.Contains(t, errOut, "password reset token issued")
}

func TestUsageErrors(t *testing.T) {
	useTempDB(t)

	code, _, _ := runCLI(t, "")
	assert.Equal(t, 2, code)

	code, _, errOut := runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, errOut = runCLI(t, "", "--backend", "cassandra", "device-id")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown backend")
}

func TestMiniredisBackend(t *testing.T) {
	t.Setenv("AUTHCTL_LOG_LEVEL", "error")

	code, out, errOut := runCLI(t, "", "--backend", "miniredis", "report")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "production mode:")
}

func TestConfigValidate(t *testing.T) {
	cfg := cliConfig{Backend: backendRedis, RequestTimeout: 1}
	assert.ErrorContains(t, cfg.validate(), "redis_addr")

	cfg = cliConfig{Backend: backendSQLite, SQLitePath: "x.db", SESRegion: "eu-west-1", RequestTimeout: 1}
	assert.ErrorContains(t, cfg.validate(), "ses_region and ses_from")
}
