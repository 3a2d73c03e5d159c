// Package websearch queries a live web search API for information the
// product catalog does not hold.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/ziadkadry99/shopagent/internal/logger"
)

const (
	// DefaultBaseURL is the Serper API endpoint.
	DefaultBaseURL = "https://google.serper.dev"
	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxResults is used when a caller passes max <= 0.
	DefaultMaxResults = 5

	defaultRetries     = 2
	defaultBackoffBase = 250 * time.Millisecond

	SourceWeb    = "web_search"
	SourceSystem = "system"
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
}

// Searcher runs a web search. An error means the search could not be
// performed at all; API-level refusals come back as placeholder results.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// Options configures a Serper client.
type Options struct {
	APIKey      string
	Enabled     bool
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  uint64
	BackoffBase time.Duration
	Country     string
	Language    string
	Logger      logger.Logger
}

// Serper is a Searcher backed by the Serper Google search API.
type Serper struct {
	client  *resty.Client
	opts    Options
	log     logger.Logger
	retries uint64
}

var _ Searcher = (*Serper)(nil)

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

// NewSerper builds a Serper client from opts.
func NewSerper(opts Options) *Serper {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.Country == "" {
		opts.Country = "vn"
	}
	if opts.Language == "" {
		opts.Language = "vi"
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	retries := opts.MaxRetries
	if retries == 0 {
		retries = defaultRetries
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Serper{client: client, opts: opts, log: log, retries: retries}
}

// Enabled reports whether searches will reach the API.
func (s *Serper) Enabled() bool {
	return s.opts.Enabled && s.opts.APIKey != ""
}

// Search returns up to max organic results for query.
func (s *Serper) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if !s.Enabled() {
		return []Result{Placeholder("Web Search Unavailable", "Web search is currently disabled or API key not configured.")}, nil
	}
	if max <= 0 {
		max = DefaultMaxResults
	}

	body := serperRequest{Q: query, Num: max, GL: s.opts.Country, HL: s.opts.Language}
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.opts.BackoffBase))

	var resp *resty.Response
	var parsed serperResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		parsed = serperResponse{}
		r, err := s.client.R().
			SetContext(ctx).
			SetHeader("X-API-KEY", s.opts.APIKey).
			SetBody(body).
			SetResult(&parsed).
			Post("/search")
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Debug("web search attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("web search request: %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusForbidden:
		s.log.Warn("web search forbidden", "status", code)
		return []Result{Placeholder("Web Search Error", "API forbidden (403). Check SERPER_API_KEY or quota.")}, nil
	case code != http.StatusOK:
		s.log.Warn("web search failed", "status", code)
		return []Result{Placeholder("Web Search Error", fmt.Sprintf("HTTP %d from search API.", code))}, nil
	}

	organic := parsed.Organic
	if len(organic) > max {
		organic = organic[:max]
	}
	results := make([]Result, 0, len(organic))
	for _, item := range organic {
		results = append(results, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			Link:    item.Link,
			Source:  SourceWeb,
		})
	}
	s.log.Debug("web search completed", "query", query, "results", len(results))
	return results, nil
}

// Placeholder builds a system result carrying an explanation instead of a hit.
func Placeholder(title, snippet string) Result {
	return Result{Title: title, Snippet: snippet, Source: SourceSystem}
}
