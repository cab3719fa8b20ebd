package testutil

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey3/auth"
	"github.com/mbolis/survey3/model"
)

// Wallet is an Ethereum account able to sign personal messages.
type Wallet struct {
	key     *secp256k1.PrivateKey
	Address string
}

func NewWallet(t testing.TB) *Wallet {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	return &Wallet{key: key, Address: auth.PubKeyToAddress(key.PubKey())}
}

// Sign produces a 0x-prefixed r||s||v personal_sign signature.
func (w *Wallet) Sign(msg string) string {
	compact := ecdsa.SignCompact(w.key, auth.HashMessage(msg), false)
	sig := make([]byte, 0, 65)
	sig = append(sig, compact[1:]...)
	sig = append(sig, compact[0])
	return "0x" + hex.EncodeToString(sig)
}

// SignIn builds a signed sign-in request issued at now and valid for ttl.
// A negative ttl yields an already expired challenge.
func (w *Wallet) SignIn(now time.Time, ttl time.Duration) model.SignInRequest {
	p := model.SignInPayload{
		Domain:         "survey3.test",
		Address:        w.Address,
		Statement:      "Sign in to survey3",
		URI:            "https://survey3.test/login",
		Version:        "1",
		ChainID:        float64(1),
		Nonce:          "k2n8v7x3q9",
		IssuedAt:       now.UTC().Format(time.RFC3339),
		ExpirationTime: now.Add(ttl).UTC().Format(time.RFC3339),
	}
	return model.SignInRequest{
		Header:    model.SignInHeader{T: auth.HeaderEIP191},
		Payload:   p,
		Signature: w.Sign(auth.Message(p, "1")),
	}
}
