// Package ipfs talks to the content-addressed network: uploads go through
// the web3.storage pinning API, reads through a public IPFS gateway.
package ipfs

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Pinner uploads a value as a named JSON blob and returns its CID.
type Pinner interface {
	Put(ctx context.Context, name string, v any) (cid string, err error)
}

// Fetcher resolves the file stored under a CID.
type Fetcher interface {
	Fetch(ctx context.Context, cid, filename string) ([]byte, error)
}

// FetchJSON fetches a blob and decodes it into v.
func FetchJSON(ctx context.Context, f Fetcher, cid, filename string, v any) error {
	data, err := f.Fetch(ctx, cid, filename)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "ipfs.decode %s/%s", cid, filename)
}
