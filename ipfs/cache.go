package ipfs

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/metrics"
	"github.com/pkg/errors"
)

// CachedGateway is a read-through cache in front of a Fetcher. Blobs are
// immutable, so entries never expire.
type CachedGateway struct {
	next    Fetcher
	db      *badger.DB
	metrics *metrics.Metrics
}

// OpenCache opens the badger cache in dir, or in memory when dir is empty.
func OpenCache(dir string, next Fetcher, m *metrics.Metrics) (*CachedGateway, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.
		WithLogger(log.Logger).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "ipfs.cache.open")
	}
	return &CachedGateway{next: next, db: db, metrics: m}, nil
}

func cacheKey(cid, filename string) []byte {
	return []byte(cid + "/" + filename)
}

func (c *CachedGateway) Fetch(ctx context.Context, cid, filename string) ([]byte, error) {
	key := cacheKey(cid, filename)

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		c.metrics.ObserveCache(true)
		return data, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		log.Warnf("ipfs.cache.get %s: %s", key, err)
	}
	c.metrics.ObserveCache(false)

	data, err = c.next.Fetch(ctx, cid, filename)
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		log.Warnf("ipfs.cache.set %s: %s", key, err)
	}
	return data, nil
}

func (c *CachedGateway) Close() error {
	return c.db.Close()
}
