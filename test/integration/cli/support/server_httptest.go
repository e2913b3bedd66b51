package support

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// defaultServerConfig mirrors the shipped defaults.
func defaultServerConfig() server.Config {
	return server.Config{
		Host:         "localhost",
		CORSOrigin:   "*",
		MaxBodyKB:    256,
		TimeoutSec:   30,
		Defaults:     barcode.DefaultOptions(),
		BatchWorkers: 2,
	}
}

// startTestHTTPServer starts an in-process validation server.
func (testCtx *TestContext) startTestHTTPServer(cfg server.Config) error {
	if testCtx.HTTPTestServer != nil {
		testCtx.stopTestHTTPServer()
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(mux),
		TestServer: srv,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer == nil {
		return
	}
	testCtx.HTTPTestServer.Server.Close()
	_ = testCtx.HTTPTestServer.TestServer.Close()
	testCtx.HTTPTestServer = nil
}

// doRequest sends a request to the running server and records the response.
func (testCtx *TestContext) doRequest(method, path, body string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, testCtx.HTTPTestServer.Server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := testCtx.HTTPTestServer.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		testCtx.LastHTTPHeaders[name] = resp.Header.Get(name)
	}
	return nil
}
