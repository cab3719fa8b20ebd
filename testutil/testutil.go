// Package testutil holds fixtures shared by the package tests: a throwaway
// SQLite store, an in-memory pinning service and gateway, signing keys and
// Ethereum wallets that produce valid sign-in requests.
package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey3/auth"
	"github.com/mbolis/survey3/database"
)

// NewStore opens a migrated SQLite store in a temp dir, closed on cleanup.
func NewStore(t testing.TB) database.Store {
	t.Helper()

	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// SigningKey returns a process-wide RSA key; generating one per test is slow.
func SigningKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, auth.DefaultKeyBits)
	})
	require.NoError(t, keyErr)
	return key
}

func Tokens(t testing.TB) *auth.Tokens {
	return auth.NewTokens(SigningKey(t), time.Hour)
}

// Secret is SigningKey in API_SECRET form.
func Secret(t testing.TB) string {
	return auth.EncodePrivateKey(SigningKey(t))
}
