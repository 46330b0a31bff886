// Package collector fetches a page and reduces it to an AnalysisPayload.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/utils"
	"github.com/raysh454/phishlens/internal/webclient"
)

// Source is the page-content collaborator used by the orchestrator.
type Source interface {
	Collect(ctx context.Context, rawURL string, deep bool) (model.AnalysisPayload, error)
}

// Collector implements Source over a webclient.
type Collector struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

func New(cfg Config, wc webclient.WebClient, logger logging.Logger) (*Collector, error) {
	if wc == nil {
		return nil, errors.New("collector: nil webclient")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Collector{
		cfg:    cfg,
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "collector"}),
	}, nil
}

var (
	sensitiveTypes = map[string]bool{"password": true, "tel": true, "number": true}
	sensitiveHint  = regexp.MustCompile(`otp|pin|password|passcode|bank|account`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// Collect fetches rawURL. Without deep only the title and language are kept;
// with deep the visible text, links and forms are extracted too.
func (c *Collector) Collect(ctx context.Context, rawURL string, deep bool) (model.AnalysisPayload, error) {
	payload := model.AnalysisPayload{URL: rawURL, Links: []string{}, Forms: []model.FormInfo{}}

	base, err := utils.ParseURL(rawURL)
	if err != nil {
		return payload, fmt.Errorf("collect %q: %w", rawURL, err)
	}
	resp, err := c.wc.Get(ctx, base.String())
	if err != nil {
		return payload, fmt.Errorf("collect %q: %w", rawURL, err)
	}
	if !resp.OK() {
		c.logger.Debug("page answered non-2xx",
			logging.Field{Key: "url", Value: rawURL},
			logging.Field{Key: "status", Value: resp.StatusCode})
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return payload, fmt.Errorf("parse %q: %w", rawURL, err)
	}

	payload.Title = strings.TrimSpace(doc.Find("title").First().Text())
	payload.Lang = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))
	if !deep {
		return payload, nil
	}

	payload.Text = c.visibleText(doc)
	payload.Links = c.links(doc, base)
	payload.Forms = c.forms(doc)

	c.logger.Debug("collected page",
		logging.Field{Key: "url", Value: rawURL},
		logging.Field{Key: "text_chars", Value: len([]rune(payload.Text))},
		logging.Field{Key: "links", Value: len(payload.Links)},
		logging.Field{Key: "forms", Value: len(payload.Forms)})
	return payload, nil
}

func (c *Collector) visibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	body.Find("script, style, noscript, template").Remove()
	text := strings.TrimSpace(whitespace.ReplaceAllString(body.Text(), " "))
	if c.cfg.MaxTextChars > 0 {
		if r := []rune(text); len(r) > c.cfg.MaxTextChars {
			text = string(r[:c.cfg.MaxTextChars])
		}
	}
	return text
}

func (c *Collector) links(doc *goquery.Document, base *url.URL) []string {
	out := []string{}
	seen := map[string]bool{}
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if c.cfg.MaxLinks > 0 && len(out) >= c.cfg.MaxLinks {
			return false
		}
		abs, ok := utils.ResolveReference(base, a.AttrOr("href", ""))
		if !ok {
			return true
		}
		if c.cfg.DedupeLinks {
			key, err := utils.Canonicalize(abs, utils.CanonicalizeOptions{DropTrackingParams: true})
			if err != nil {
				key = abs
			}
			if seen[key] {
				return true
			}
			seen[key] = true
		}
		out = append(out, abs)
		return true
	})
	return out
}

func (c *Collector) forms(doc *goquery.Document) []model.FormInfo {
	out := []model.FormInfo{}
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if c.cfg.MaxForms > 0 && len(out) >= c.cfg.MaxForms {
			return false
		}
		inputs := form.Find("input")
		info := model.FormInfo{InputCount: inputs.Length()}
		inputs.EachWithBreak(func(_ int, in *goquery.Selection) bool {
			if isSensitive(in) {
				info.Sensitive = true
				return false
			}
			return true
		})
		out = append(out, info)
		return true
	})
	return out
}

func isSensitive(in *goquery.Selection) bool {
	if sensitiveTypes[strings.ToLower(strings.TrimSpace(in.AttrOr("type", "")))] {
		return true
	}
	hint := strings.ToLower(in.AttrOr("name", "") + " " + in.AttrOr("placeholder", ""))
	return sensitiveHint.MatchString(hint)
}
