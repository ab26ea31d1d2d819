package http

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"geodex/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestServe_ShutsDownOnContextCancel(t *testing.T) {
	cfg := &config.Config{}
	echoServer := echo.New()
	echoServer.HideBanner = true
	server := &httpServer{
		cfg:    cfg,
		logger: slog.Default(),
		server: echoServer,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	// Let the listener come up before pulling the plug.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
