package webclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/raysh454/phishlens/internal/logging"
)

// ChromedpClient renders pages in headless Chrome so script-built content
// is visible to the collector. Only GET is supported. Each Do opens a new
// tab on a shared browser.
type ChromedpClient struct {
	cfg    Config
	logger logging.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// NewChromedpClient starts a browser process and returns a client bound to it.
func NewChromedpClient(cfg Config, logger logging.Logger) (WebClient, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	l := logger.With(logging.Field{Key: "backend", Value: "chromedp"})

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser so construction fails fast.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	l.Debug("created chromedp webclient",
		logging.Field{Key: "idle_after", Value: cfg.IdleAfter.String()},
		logging.Field{Key: "headless", Value: cfg.Headless})

	return &ChromedpClient{
		cfg:         cfg,
		logger:      l,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		cancel:      cancel,
	}, nil
}

// waitNetworkIdle returns a channel that is closed once no request has been
// in flight for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idle := make(chan struct{})
	var active int32
	var mu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	arm := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&active) <= 0 {
				once.Do(func() { close(idle) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&active, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&active, -1) <= 0 {
				arm()
			}
		}
	})
	arm()
	return idle
}

// Do navigates to req.URL and returns the rendered outer HTML.
func (c *ChromedpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	method := strings.ToUpper(req.Method)
	if method != "" && method != http.MethodGet {
		return nil, fmt.Errorf("chromedp: method %s not supported", method)
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context too.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var (
		statusMu sync.Mutex
		status   int
		headers  = http.Header{}
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			statusMu.Lock()
			defer statusMu.Unlock()
			if status == 0 {
				status = int(e.Response.Status)
				for k, v := range e.Response.Headers {
					headers.Set(k, fmt.Sprint(v))
				}
			}
		}
	})

	idleAfter := c.cfg.IdleAfter
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}
	idle := waitNetworkIdle(tabCtx, idleAfter)

	started := time.Now()
	if err := chromedp.Run(tabCtx, network.Enable(), chromedp.Navigate(req.URL)); err != nil {
		c.logger.Warn("navigation failed",
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "error", Value: err})
		return nil, fmt.Errorf("chromedp navigate: %w", err)
	}

	select {
	case <-idle:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("chromedp wait idle: %w", tabCtx.Err())
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("chromedp outer html: %w", err)
	}

	statusMu.Lock()
	code := status
	statusMu.Unlock()
	if code == 0 {
		code = http.StatusOK
	}

	body := []byte(html)
	if c.cfg.MaxBodyBytes > 0 && int64(len(body)) > c.cfg.MaxBodyBytes {
		body = body[:c.cfg.MaxBodyBytes]
	}
	return &Response{
		Request:    req,
		Headers:    headers,
		Body:       body,
		StatusCode: code,
		FetchedAt:  time.Now(),
		Elapsed:    time.Since(started),
	}, nil
}

// Get is a convenience method for simple GET requests
func (c *ChromedpClient) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

// Close shuts the browser down.
func (c *ChromedpClient) Close() error {
	c.cancel()
	c.allocCancel()
	c.logger.Debug("closed chromedp webclient")
	return nil
}
