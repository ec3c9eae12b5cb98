package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/app"
	"github.com/JakeFAU/content-progress/internal/config"
)

func TestRootRejectsMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.ErrorContains(t, err, "load config")
}

func TestRootRegistersServe(t *testing.T) {
	cmd := newRootCmd()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestServeWithoutRunEnv(t *testing.T) {
	cmd := newServeCmd()
	cmd.SetContext(context.Background())
	err := runServe(cmd, nil)
	require.ErrorContains(t, err, "not initialized")
}

func TestServeAppInitFailure(t *testing.T) {
	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(context.Context, config.Config, *zap.Logger) (*app.App, error) {
		return nil, errors.New("postgres unreachable")
	}

	cmd := newServeCmd()
	cmd.SetContext(context.WithValue(context.Background(), runEnvKey, &runEnv{
		cfg:    config.Config{Server: config.ServerConfig{Port: 8080, ShutdownTimeoutSeconds: 1}},
		logger: zap.NewNop(),
	}))
	err := runServe(cmd, nil)
	require.ErrorContains(t, err, "failed to initialize application services")
	require.ErrorContains(t, err, "postgres unreachable")
}

func TestListenAddr(t *testing.T) {
	cfg := config.Config{Server: config.ServerConfig{Port: 8081}}

	t.Setenv("PORT", "")
	assert.Equal(t, ":8081", listenAddr(cfg))

	t.Setenv("PORT", "9090")
	assert.Equal(t, ":9090", listenAddr(cfg))

	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, ":8081", listenAddr(cfg))
}

func TestServeHTTPShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, srv, ln, time.Second, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
