package ipfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/metrics"
	"github.com/pkg/errors"
)

const defaultMinBackoff = 200 * time.Millisecond

// StatusError is a non-200 gateway answer.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ipfs.fetch %s: status %d", e.URL, e.Status)
}

// Gateway reads blobs over HTTP from https://<host>/ipfs/<cid>/<filename>.
// Transport errors, 429 and 5xx answers are retried with exponential
// backoff up to Retries times; any other status is final.
type Gateway struct {
	BaseURL    string
	Client     *http.Client
	Retries    int
	MinBackoff time.Duration
	Metrics    *metrics.Metrics
}

func NewGateway(host string, timeout time.Duration, retries int, m *metrics.Metrics) *Gateway {
	return &Gateway{
		BaseURL: "https://" + host,
		Client:  &http.Client{Timeout: timeout},
		Retries: retries,
		Metrics: m,
	}
}

func (g *Gateway) URL(cid, filename string) string {
	return strings.TrimSuffix(g.BaseURL, "/") + "/ipfs/" + url.PathEscape(cid) + "/" + url.PathEscape(filename)
}

func (g *Gateway) Fetch(ctx context.Context, cid, filename string) ([]byte, error) {
	u := g.URL(cid, filename)
	if g.Retries <= 0 {
		return g.fetch(ctx, u)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	minBackoff := g.MinBackoff
	if minBackoff <= 0 {
		minBackoff = defaultMinBackoff
	}
	b := backoff.Exponential(
		backoff.WithMinInterval(minBackoff),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithJitterFactor(0.1),
		backoff.WithMaxRetries(g.Retries+1),
	).Start(ctx)

	var lastErr error
	for attempt := 0; backoff.Continue(b); attempt++ {
		data, err := g.fetch(ctx, u)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(ctx, err) || attempt >= g.Retries {
			break
		}
		log.Debugf("ipfs.fetch: attempt %d failed, retrying: %s", attempt+1, err)
	}
	if lastErr == nil {
		lastErr = errors.Wrapf(ctx.Err(), "ipfs.fetch %s", u)
	}
	return nil, lastErr
}

func (g *Gateway) fetch(ctx context.Context, u string) ([]byte, error) {
	data, err := g.get(ctx, u)
	g.Metrics.ObserveFetch(err)
	return data, err
}

func (g *Gateway) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "ipfs.fetch.request")
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "ipfs.fetch %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: u, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "ipfs.fetch %s: read body", u)
	}
	return data, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return true
}
