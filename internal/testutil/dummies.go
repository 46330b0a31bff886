// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/store"
	"github.com/raysh454/phishlens/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of warnings recorded so far.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>" with status 200.
// Set FailURLs[url] = true to force an error for a specific URL, or Pages[url]
// to serve a fixed HTML body.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Pages         map[string]string
	Status        int

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}

	body := "ok:" + req.URL
	headers := http.Header{}
	if page, ok := d.Pages[req.URL]; ok {
		body = page
		headers.Set("Content-Type", "text/html; charset=utf-8")
	}
	status := d.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &webclient.Response{
		Request:    req,
		Headers:    headers,
		Body:       []byte(body),
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns the number of requests seen so far.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Key-value store ───────────────────────────────────────────────────

// ErrDummyStorage is returned by FailingKV.
var ErrDummyStorage = errors.New("dummy storage failure")

// FailingKV satisfies store.KV. Reads miss or fail, writes fail once
// FailSets is set.
type FailingKV struct {
	FailGets bool
	FailSets bool

	mu   sync.Mutex
	data map[string][]byte
}

func (f *FailingKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.FailGets {
		return nil, ErrDummyStorage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (f *FailingKV) Set(_ context.Context, key string, value []byte) error {
	if f.FailSets {
		return ErrDummyStorage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *FailingKV) Update(_ context.Context, key string, fn store.UpdateFunc) error {
	if f.FailGets {
		return ErrDummyStorage
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var cur []byte
	if v, ok := f.data[key]; ok {
		cur = append([]byte(nil), v...)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if f.FailSets {
		return ErrDummyStorage
	}
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = append([]byte(nil), next...)
	return nil
}

func (f *FailingKV) Close() error { return nil }

// ─── Collector ─────────────────────────────────────────────────────────

// DummyCollector returns a fixed payload for every URL.
type DummyCollector struct {
	Payload model.AnalysisPayload
	Err     error

	mu    sync.Mutex
	Calls []string
	Deep  []bool
}

func (d *DummyCollector) Collect(_ context.Context, url string, deep bool) (model.AnalysisPayload, error) {
	d.mu.Lock()
	d.Calls = append(d.Calls, url)
	d.Deep = append(d.Deep, deep)
	d.mu.Unlock()
	if d.Err != nil {
		return model.AnalysisPayload{}, d.Err
	}
	p := d.Payload
	p.URL = url
	return p, nil
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
