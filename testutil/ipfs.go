package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/mbolis/survey3/ipfs"
)

var ErrUploadRefused = errors.New("upload refused")

// MemoryIPFS is a pinning service and gateway in one. Every Put yields a
// fresh CID, even for identical content.
type MemoryIPFS struct {
	// FailPut makes Put fail for the blob names it returns true for.
	FailPut func(name string) bool

	mu      sync.Mutex
	seq     int
	blobs   map[string][]byte
	puts    []string
	fetches int
}

func NewMemoryIPFS() *MemoryIPFS {
	return &MemoryIPFS{blobs: map[string][]byte{}}
}

func (m *MemoryIPFS) Put(ctx context.Context, name string, v any) (string, error) {
	if m.FailPut != nil && m.FailPut(name) {
		return "", ErrUploadRefused
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cid := fmt.Sprintf("bafytest%04d", m.seq)
	m.blobs[cid+"/"+name] = data
	m.puts = append(m.puts, name)
	return cid, nil
}

func (m *MemoryIPFS) Fetch(ctx context.Context, cid, filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	data, ok := m.blobs[cid+"/"+filename]
	if !ok {
		return nil, &ipfs.StatusError{URL: "/ipfs/" + cid + "/" + filename, Status: 404}
	}
	return data, nil
}

// Blob returns the raw JSON stored under cid/name, or nil.
func (m *MemoryIPFS) Blob(cid, name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs[cid+"/"+name]
}

// Puts lists the names of successful uploads in order.
func (m *MemoryIPFS) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

func (m *MemoryIPFS) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}
