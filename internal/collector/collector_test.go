package collector_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/raysh454/phishlens/internal/collector"
	"github.com/raysh454/phishlens/internal/testutil"
)

const page = `<!doctype html>
<html lang="en">
<head><title>  Verify your account </title><style>.x{color:red}</style></head>
<body>
  <h1>Account   suspended</h1>
  <p>Please
     log in.</p>
  <script>var secret = "not visible";</script>
  <a href="/reset">reset</a>
  <a href="https://bit.ly/abc?utm_source=mail">short</a>
  <a href="https://bit.ly/abc">short again</a>
  <a href="javascript:void(0)">js</a>
  <a href="mailto:x@example.com">mail</a>
  <form action="/login"><input name="user"><input type="password" name="pw"></form>
  <form><input name="search" placeholder="Search"></form>
  <form><input name="otp_code"></form>
</body></html>`

func newCollector(t *testing.T, cfg collector.Config, pages map[string]string) (*collector.Collector, *testutil.DummyWebClient) {
	t.Helper()
	wc := &testutil.DummyWebClient{Pages: pages}
	c, err := collector.New(cfg, wc, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, wc
}

func TestCollect_Deep(t *testing.T) {
	t.Parallel()
	c, wc := newCollector(t, collector.DefaultConfig(), map[string]string{"https://bank.example/login": page})

	p, err := c.Collect(context.Background(), "https://bank.example/login", true)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if n := wc.RequestCount(); n != 1 {
		t.Errorf("page fetched %d times, want 1", n)
	}
	if p.Title != "Verify your account" || p.Lang != "en" {
		t.Errorf("title/lang = %q/%q", p.Title, p.Lang)
	}
	if !strings.Contains(p.Text, "Account suspended Please log in.") {
		t.Errorf("text not collapsed: %q", p.Text)
	}
	if strings.Contains(p.Text, "not visible") || strings.Contains(p.Text, "color:red") {
		t.Errorf("script or style leaked into text: %q", p.Text)
	}

	wantLinks := []string{"https://bank.example/reset", "https://bit.ly/abc?utm_source=mail"}
	if len(p.Links) != len(wantLinks) {
		t.Fatalf("links = %v, want %v", p.Links, wantLinks)
	}
	for i := range wantLinks {
		if p.Links[i] != wantLinks[i] {
			t.Errorf("links[%d] = %q, want %q", i, p.Links[i], wantLinks[i])
		}
	}

	if len(p.Forms) != 3 {
		t.Fatalf("forms = %+v", p.Forms)
	}
	if p.Forms[0].InputCount != 2 || !p.Forms[0].Sensitive {
		t.Errorf("login form = %+v", p.Forms[0])
	}
	if p.Forms[1].Sensitive {
		t.Errorf("search form should not be sensitive")
	}
	if !p.Forms[2].Sensitive {
		t.Errorf("otp form should be sensitive")
	}
}

func TestCollect_Shallow(t *testing.T) {
	t.Parallel()
	c, _ := newCollector(t, collector.DefaultConfig(), map[string]string{"https://bank.example/login": page})

	p, err := c.Collect(context.Background(), "bank.example/login", false)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if p.Title == "" || p.Text != "" || len(p.Links) != 0 || len(p.Forms) != 0 {
		t.Errorf("shallow payload = %+v", p)
	}
	if p.URL != "bank.example/login" {
		t.Errorf("url = %q", p.URL)
	}
}

func TestCollect_Limits(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	b.WriteString("<html><body><p>")
	b.WriteString(strings.Repeat("é", 7000))
	b.WriteString("</p>")
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, `<a href="/p%d">l</a>`, i)
	}
	for i := 0; i < 15; i++ {
		b.WriteString(`<form><input></form>`)
	}
	b.WriteString("</body></html>")

	c, _ := newCollector(t, collector.DefaultConfig(), map[string]string{"https://big.example/": b.String()})
	p, err := c.Collect(context.Background(), "https://big.example", true)
	if err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(p.Text)); n != 6000 {
		t.Errorf("text runes = %d, want 6000", n)
	}
	if len(p.Links) != 40 {
		t.Errorf("links = %d, want 40", len(p.Links))
	}
	if len(p.Forms) != 10 {
		t.Errorf("forms = %d, want 10", len(p.Forms))
	}
}

func TestCollect_FetchError(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{"https://down.example/": true}}
	c, err := collector.New(collector.DefaultConfig(), wc, nil)
	if err != nil {
		t.Fatal(err)
	}

	p, err := c.Collect(context.Background(), "https://down.example", true)
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if p.URL != "https://down.example" {
		t.Errorf("partial payload should keep the url, got %+v", p)
	}

	if _, err := c.Collect(context.Background(), "", true); err == nil {
		t.Error("expected error for empty url")
	}
	if n := wc.RequestCount(); n != 1 {
		t.Errorf("requests = %d, want 1 (an empty url is never fetched)", n)
	}
}
