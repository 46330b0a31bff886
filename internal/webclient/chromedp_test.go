package webclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/webclient"
)

func newChromedp(t *testing.T) webclient.WebClient {
	t.Helper()
	if os.Getenv("PHISHLENS_TEST_CHROME") == "" {
		t.Skip("set PHISHLENS_TEST_CHROME to run chromedp tests")
	}
	cfg := webclient.DefaultConfig()
	cfg.Client = webclient.ClientChromedp
	cfg.IdleAfter = 300 * time.Millisecond
	cfg.Timeout = 20 * time.Second

	client, err := webclient.NewChromedpClient(cfg, logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewChromedpClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestChromedpClient_RendersScriptContent checks that DOM built by script
// shows up in the returned HTML.
func TestChromedpClient_RendersScriptContent(t *testing.T) {
	client := newChromedp(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><body><div id="x"></div>
<script>document.getElementById("x").textContent = "rendered-by-js";</script></body></html>`)
	}))
	defer ts.Close()

	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(string(resp.Body), "rendered-by-js") {
		t.Errorf("expected rendered content, got %s", resp.Body)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

// TestChromedpClient_DoRejectsNonGET verifies that Do() returns error for non-GET methods
func TestChromedpClient_DoRejectsNonGET(t *testing.T) {
	client := newChromedp(t)

	_, err := client.Do(context.Background(), &webclient.Request{
		Method: "POST",
		URL:    "http://example.com",
	})
	if err == nil {
		t.Fatal("Expected error for POST request, got nil")
	}
	if !strings.Contains(err.Error(), "not supported") {
		t.Errorf("Expected error about method not supported, got: %v", err)
	}
}
