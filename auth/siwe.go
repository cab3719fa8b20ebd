package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mbolis/survey3/model"
	"golang.org/x/crypto/sha3"
)

// HeaderEIP191 is the only signature type accepted for Ethereum sign-in.
const HeaderEIP191 = "eip191"

var (
	ErrChainID          = errors.New("ChainId must be a number for Ethereum")
	ErrSignatureType    = errors.New("unsupported signature type")
	ErrSignatureFormat  = errors.New("malformed signature")
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrExpired          = errors.New("Signature has expired")
)

// ChainID extracts the numeric chain id. JSON numbers decode as float64;
// strings are rejected because Ethereum chain ids are numeric.
func ChainID(v any) (string, error) {
	switch id := v.(type) {
	case float64:
		if id != float64(int64(id)) || id < 0 {
			return "", ErrChainID
		}
		return strconv.FormatInt(int64(id), 10), nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	default:
		return "", ErrChainID
	}
}

// CheckExpiry compares both instants in UTC truncated to the second, so a
// challenge stays valid for the whole second it expires in.
func CheckExpiry(expirationTime string, now time.Time) error {
	exp, err := ParseTime(expirationTime)
	if err != nil {
		return err
	}
	if now.UTC().Truncate(time.Second).After(exp.UTC().Truncate(time.Second)) {
		return ErrExpired
	}
	return nil
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Message renders the EIP-4361 text the wallet signed.
func Message(p model.SignInPayload, chainID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n", p.Domain)
	b.WriteString(p.Address)
	b.WriteString("\n\n")
	if p.Statement != "" {
		b.WriteString(p.Statement)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "URI: %s\n", p.URI)
	fmt.Fprintf(&b, "Version: %s\n", p.Version)
	fmt.Fprintf(&b, "Chain ID: %s\n", chainID)
	fmt.Fprintf(&b, "Nonce: %s\n", p.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", p.IssuedAt)
	if p.ExpirationTime != "" {
		fmt.Fprintf(&b, "\nExpiration Time: %s", p.ExpirationTime)
	}
	return b.String()
}

// Verify checks a sign-in request: signature type, chain id and that the
// personal_sign signature recovers to the claimed address.
func Verify(req model.SignInRequest) error {
	if req.Header.T != HeaderEIP191 {
		return ErrSignatureType
	}
	chainID, err := ChainID(req.Payload.ChainID)
	if err != nil {
		return err
	}

	addr, err := RecoverAddress(Message(req.Payload, chainID), req.Signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(addr, req.Payload.Address) {
		return ErrSignatureInvalid
	}
	return nil
}

// HashMessage is keccak256 over the EIP-191 personal message envelope.
func HashMessage(msg string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return h.Sum(nil)
}

// RecoverAddress returns the 0x-prefixed lowercase address that produced
// the 65 byte r||s||v signature over msg.
func RecoverAddress(msg, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return "", ErrSignatureFormat
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", ErrSignatureFormat
	}

	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, HashMessage(msg))
	if err != nil {
		return "", ErrSignatureInvalid
	}
	return PubKeyToAddress(pub), nil
}

func PubKeyToAddress(pub *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[12:])
}

// NormalizeAddress is the storage form of a wallet address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
