package cmd

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/auth"
	"github.com/JakeFAU/crawl-gateway/internal/config"
)

// clearSecretEnv unsets both secret variables for the duration of the test.
// Tests using it mutate the process environment and cannot run in parallel.
func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SECRET_KEY", "CRAWLER_AUTH_SECRET_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestTokenCommandUsesConfiguredSecret(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")

	out, _, err := execute(t, "token", "--client-id", "svc", "--ttl", "1h", "--env-file", "")
	require.NoError(t, err)

	claims, err := auth.NewValidator("s3cret", nil).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "svc", claims.ClientID)
	require.NotNil(t, claims.ExpiresAt)
	require.NotEmpty(t, claims.ID)
}

func TestTokenCommandPaddedSecretAcceptedByServe(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("SECRET_KEY", " padded-secret ")

	out, _, err := execute(t, "token", "--env-file", "")
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	gw := buildGateway(cfg, zap.NewNop())
	defer gw.Close()

	// Auth passes, so the empty body reaches validation.
	req := httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out))
	rec := httptest.NewRecorder()
	gw.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTokenCommandGeneratesSecret(t *testing.T) {
	clearSecretEnv(t)

	out, errOut, err := execute(t, "token", "--env-file", "")
	require.NoError(t, err)

	idx := strings.LastIndex(errOut, "SECRET_KEY=")
	require.NotEqual(t, -1, idx, errOut)
	secret := strings.TrimSpace(errOut[idx+len("SECRET_KEY="):])
	require.Len(t, secret, 64)

	claims, err := auth.NewValidator(secret, nil).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "crawler_client", claims.ClientID)
	require.Nil(t, claims.ExpiresAt)
}

func TestTokenCommandCustomPermissions(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("SECRET_KEY", "s3cret")

	out, _, err := execute(t, "token", "--permission", "read", "--env-file", "")
	require.NoError(t, err)

	_, err = auth.NewValidator("s3cret", nil).Validate(strings.TrimSpace(out))
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestTokenCommandReadsDotenv(t *testing.T) {
	clearSecretEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SECRET_KEY=from-dotenv\n"), 0o600))

	out, errOut, err := execute(t, "token", "--env-file", envFile)
	require.NoError(t, err)
	require.Empty(t, errOut)

	_, err = auth.NewValidator("from-dotenv", nil).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
}

func TestServeRequiresSecret(t *testing.T) {
	clearSecretEnv(t)

	_, _, err := execute(t, "serve", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorIs(t, err, config.ErrMissingSecret)
}

func TestLoadEnvFileIgnoresMissing(t *testing.T) {
	t.Parallel()

	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}

func TestBuildGatewayRoutes(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 5},
		Auth:   config.AuthConfig{SecretKey: "s3cret"},
		Probe:  config.ProbeConfig{TimeoutSeconds: 1},
		Fetch:  config.FetchConfig{TimeoutSeconds: 1, MaxDocumentBytes: 1024, MaxPageBytes: 1024},
	}
	gw := buildGateway(cfg, zap.NewNop())
	defer gw.Close()

	rec := httptest.NewRecorder()
	gw.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	gw.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(`{"url":"https://example.com"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBuildGatewayWithRendererClosesCleanly(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Server:   config.ServerConfig{RequestTimeoutSeconds: 5},
		Headless: config.HeadlessConfig{Enabled: true, MaxParallel: 1, NavTimeoutSec: 5},
	}
	gw := buildGateway(cfg, zap.NewNop())
	require.Len(t, gw.closers, 1)
	gw.Close()
}

func TestRunServerGracefulShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, ln, handler, time.Second, zap.NewNop())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
