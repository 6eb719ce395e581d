// Package metadata reads and writes the public state of accounts.
//
// A value is addressed by a private key: it is stored under the compressed public key,
// encrypted to that public key and signed by the private key. Backends only ever see
// opaque blobs.
package metadata

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/internal/hash"
	"github.com/taurusgroup/tss-factors/pkg/ecies"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
)

var (
	// ErrNotFound is returned when nothing is stored under a key.
	ErrNotFound = errors.New("metadata: not found")
	// ErrInvalidEnvelope is returned when a stored blob is malformed or not signed by its key.
	ErrInvalidEnvelope = errors.New("metadata: invalid envelope")
)

// Backend stores blobs by key.
type Backend interface {
	// Fetch returns ErrNotFound if nothing is stored under key.
	Fetch(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte) error
	Name() string
}

type envelope struct {
	Ciphertext *ecies.Ciphertext `cbor:"1,keyasint"`
	// Signature is a 65 byte compact signature over the envelope digest.
	Signature []byte `cbor:"2,keyasint"`
}

// Store encrypts, signs and encodes values on top of a Backend.
type Store struct {
	Backend Backend
	Rand    io.Reader
	Log     zerolog.Logger
}

// NewStore returns a Store using crypto/rand.
func NewStore(backend Backend, log zerolog.Logger) *Store {
	return &Store{
		Backend: backend,
		Rand:    rand.Reader,
		Log:     log.With().Str("backend", backend.Name()).Logger(),
	}
}

// Key returns the address of the values owned by privKey: the hex encoded compressed public key.
func Key(privKey curve.Scalar) string {
	return hex.EncodeToString(curve.PublicKey(privKey.ActOnBase()).SerializeCompressed())
}

func digest(key string, c *ecies.Ciphertext) ([]byte, error) {
	h := hash.New("metadata envelope")
	if err := h.WriteAny(key, []byte(c.IV), []byte(c.EphemPublicKey), []byte(c.Ciphertext), []byte(c.MAC)); err != nil {
		return nil, err
	}
	return h.Sum(), nil
}

// Get decodes the value owned by privKey into v.
func (s *Store) Get(ctx context.Context, privKey curve.Scalar, v interface{}) error {
	key := Key(privKey)
	data, err := s.Backend.Fetch(ctx, key)
	if err != nil {
		return err
	}

	var env envelope
	if err = cbor.Unmarshal(data, &env); err != nil || env.Ciphertext == nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidEnvelope, err)
	}
	d, err := digest(key, env.Ciphertext)
	if err != nil {
		return err
	}
	signer, _, err := ecdsa.RecoverCompact(env.Signature, d)
	if err != nil || !signer.IsEqual(curve.PublicKey(privKey.ActOnBase())) {
		return fmt.Errorf("%w: bad signature", ErrInvalidEnvelope)
	}

	plaintext, err := ecies.Decrypt(privKey, env.Ciphertext)
	if err != nil {
		return err
	}
	if err = cbor.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("metadata: decode value: %w", err)
	}
	s.Log.Debug().Str("key", key).Int("size", len(data)).Msg("fetched")
	return nil
}

// Set encodes v and stores it as the value owned by privKey.
func (s *Store) Set(ctx context.Context, privKey curve.Scalar, v interface{}) error {
	key := Key(privKey)
	plaintext, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("metadata: encode value: %w", err)
	}
	c, err := ecies.Encrypt(s.Rand, privKey.ActOnBase(), plaintext)
	if err != nil {
		return err
	}
	d, err := digest(key, c)
	if err != nil {
		return err
	}
	data, err := cbor.Marshal(envelope{
		Ciphertext: c,
		Signature:  ecdsa.SignCompact(curve.PrivateKey(privKey), d, true),
	})
	if err != nil {
		return err
	}
	if err = s.Backend.Store(ctx, key, data); err != nil {
		return err
	}
	s.Log.Debug().Str("key", key).Int("size", len(data)).Msg("stored")
	return nil
}
