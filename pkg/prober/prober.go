package prober

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	errs "ytscan/pkg/errors"
	"ytscan/pkg/logger"
)

// Status classifies a single probe
type Status int

const (
	NotFound Status = iota
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "not_found"
}

// Outcome is the result of probing one identifier. Title is only set
// when Status is Found.
type Outcome struct {
	Status Status
	Title  string
}

// Found reports whether the identifier resolved to an existing item
func (o Outcome) Found() bool {
	return o.Status == Found
}

// Options configures a Client
type Options struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	PlaceholderTitles []string
	MaxBodyBytes      int64
}

// Client checks identifiers against an HTTP resource
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	baseURL      string
	timeout      time.Duration
	placeholders map[string]struct{}
	maxBodyBytes int64
	logger       logger.Logger
}

// NewClient creates a new prober client
func NewClient(opts Options, log logger.Logger) *Client {
	// Use default logger if none provided
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	}

	placeholders := make(map[string]struct{}, len(opts.PlaceholderTitles))
	for _, p := range opts.PlaceholderTitles {
		placeholders[strings.TrimSpace(p)] = struct{}{}
	}

	return &Client{
		httpClient: &http.Client{},
		headers: map[string]string{
			"User-Agent":      opts.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		},
		baseURL:      opts.BaseURL,
		timeout:      opts.Timeout,
		placeholders: placeholders,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       log.WithField("component", "prober"),
	}
}

// SetHTTPClient replaces the underlying HTTP client. The per-call
// timeout still applies.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// URL returns the address probed for id. A "{id}" placeholder in the
// base URL is substituted; a base ending in "/" or "=" gets the id
// appended directly; anything else is joined with "/".
func (c *Client) URL(id string) string {
	switch {
	case strings.Contains(c.baseURL, "{id}"):
		return strings.ReplaceAll(c.baseURL, "{id}", id)
	case strings.HasSuffix(c.baseURL, "/"), strings.HasSuffix(c.baseURL, "="):
		return c.baseURL + id
	default:
		return c.baseURL + "/" + id
	}
}

// Probe checks id and classifies the result. Transport failures are
// logged and reported as NotFound.
func (c *Client) Probe(ctx context.Context, id string) Outcome {
	start := time.Now()
	outcome, err := c.Check(ctx, id)
	if err != nil {
		c.logger.WarnWithFields("Probe failed", map[string]interface{}{
			"id":         id,
			"url":        c.URL(id),
			"error":      err.Error(),
			"error_type": string(errs.TypeOf(err)),
			"duration":   time.Since(start),
		})
		return Outcome{Status: NotFound}
	}
	logger.LogProbe(c.logger, id, outcome.Found(), outcome.Title, time.Since(start))
	return outcome
}

// Check performs one lookup and returns transport failures as
// transport-typed errors instead of folding them
func (c *Client) Check(ctx context.Context, id string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.URL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{}, errs.Wrap(errs.ErrorTypeTransport, "probe", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, errs.Wrap(errs.ErrorTypeTransport, "probe", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodyBytes))
		if errs.IsTransientStatusCode(resp.StatusCode) {
			return Outcome{}, &errs.Error{
				Type:    errs.ErrorTypeTransport,
				Op:      "probe",
				Message: fmt.Sprintf("server returned status %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return Outcome{Status: NotFound}, nil
	}

	title, err := ExtractTitle(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return Outcome{}, errs.Wrap(errs.ErrorTypeTransport, "probe", err)
	}
	return c.Classify(title), nil
}

// Classify maps an extracted title to an outcome
func (c *Client) Classify(title string) Outcome {
	title = strings.TrimSpace(title)
	if title == "" {
		return Outcome{Status: NotFound}
	}
	if _, ok := c.placeholders[title]; ok {
		return Outcome{Status: NotFound}
	}
	return Outcome{Status: Found, Title: title}
}

// ExtractTitle returns the trimmed text of the first <title> element in
// an HTML document, or "" if there is none. Character references are
// decoded, so "A &amp; B" yields "A & B".
func ExtractTitle(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}
