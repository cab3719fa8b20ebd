// Package service implements the API flows on top of the document store
// and the content-addressed network. Every returned error is an
// *httpx.Error or converts to the internal kind.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/survey3/auth"
	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/ipfs"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/model"
)

type Service struct {
	store   database.Store
	pinner  ipfs.Pinner
	gateway ipfs.Fetcher
	tokens  *auth.Tokens
	fanOut  int
	now     func() time.Time
	started time.Time
}

type Option func(*Service)

// WithFanOut bounds the number of concurrent gateway fetches per request.
// 1, the default, fetches one blob at a time in order.
func WithFanOut(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanOut = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store database.Store, pinner ipfs.Pinner, gateway ipfs.Fetcher, tokens *auth.Tokens, opts ...Option) *Service {
	s := &Service{
		store:   store,
		pinner:  pinner,
		gateway: gateway,
		tokens:  tokens,
		fanOut:  1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	return s
}

// lookupError maps a store lookup failure onto the API error kinds.
func lookupError(err error, what string) error {
	if errors.Is(err, database.ErrNotFound) {
		return httpx.NotFound("%s not found", what)
	}
	return httpx.Wrap(httpx.KindInternal, err, "Failed to fetch %s", what)
}

func (s *Service) Health(ctx context.Context) model.Health {
	now := s.now()
	h := model.Health{
		Status:    "OK",
		Uptime:    now.Sub(s.started).Seconds(),
		Timestamp: now.UnixMilli(),
		Database:  "OK",
	}
	err := s.store.Ping(ctx)
	if err != nil {
		log.Warnf("health.db.ping: %s", err)
		h.Database = "DOWN"
	}
	return h
}
