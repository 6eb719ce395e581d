package sign

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/tss-factors/internal/hash"
)

// Version selects how an Identity is encoded into a session string.
type Version uint8

const (
	// VersionStructured encodes the identity as "v1." followed by the base64url cbor encoding.
	VersionStructured Version = iota + 1
	// VersionLegacy joins the fields with control characters, for engines that parse the session string.
	VersionLegacy
)

const (
	structuredPrefix = "v1."

	legacyDelimiter2 = "\u0015"
	legacyDelimiter3 = "\u0016"
	legacyDelimiter4 = "\u0017"
	// legacyDelimiter1 is reserved by engines and must not appear either.
	legacyDelimiter1 = "\u001c"

	randomNonceLength = 32
)

var ErrInvalidIdentity = errors.New("sign: invalid session identity")

// Identity identifies a signing session. Two sessions must never share an identity,
// which RandomNonce guarantees.
type Identity struct {
	VerifierID string `cbor:"1,keyasint"`
	Tag        string `cbor:"2,keyasint"`
	// Nonce is the re-share nonce of the tag.
	Nonce       uint32 `cbor:"3,keyasint"`
	RandomNonce []byte `cbor:"4,keyasint"`
}

// NewIdentity returns an identity with a fresh random nonce, derived from 32 random bytes and now.
func NewIdentity(rand io.Reader, now time.Time, verifierID, tag string, nonce uint32) (*Identity, error) {
	seed := make([]byte, randomNonceLength)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, fmt.Errorf("sign: generate session nonce: %w", err)
	}
	h := hash.New("tss session nonce")
	if err := h.WriteAny(seed, now.UnixNano()); err != nil {
		return nil, err
	}
	return &Identity{
		VerifierID:  verifierID,
		Tag:         tag,
		Nonce:       nonce,
		RandomNonce: h.Sum(),
	}, nil
}

func (id *Identity) validate() error {
	if id.VerifierID == "" {
		return fmt.Errorf("%w: empty verifier id", ErrInvalidIdentity)
	}
	if id.Tag == "" {
		return fmt.Errorf("%w: empty tag", ErrInvalidIdentity)
	}
	if len(id.RandomNonce) != randomNonceLength {
		return fmt.Errorf("%w: random nonce must be %d bytes", ErrInvalidIdentity, randomNonceLength)
	}
	return nil
}

// Encode returns the session string of id.
func (id *Identity) Encode(v Version) (string, error) {
	if err := id.validate(); err != nil {
		return "", err
	}
	switch v {
	case VersionStructured:
		data, err := cbor.Marshal(id)
		if err != nil {
			return "", fmt.Errorf("sign: encode session identity: %w", err)
		}
		return structuredPrefix + base64.RawURLEncoding.EncodeToString(data), nil
	case VersionLegacy:
		for _, field := range []string{id.VerifierID, id.Tag} {
			if strings.ContainsAny(field, legacyDelimiter1+legacyDelimiter2+legacyDelimiter3+legacyDelimiter4) {
				return "", fmt.Errorf("%w: field contains a delimiter", ErrInvalidIdentity)
			}
		}
		return id.VerifierID + legacyDelimiter2 +
			id.Tag + legacyDelimiter3 +
			strconv.FormatUint(uint64(id.Nonce), 10) + legacyDelimiter4 +
			hex.EncodeToString(id.RandomNonce), nil
	default:
		return "", fmt.Errorf("sign: unknown identity version %d", v)
	}
}

// ParseIdentity decodes a session string produced by Encode, in either version.
func ParseIdentity(session string) (*Identity, error) {
	var id Identity
	if strings.HasPrefix(session, structuredPrefix) {
		data, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(session, structuredPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		if err = cbor.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
	} else {
		vid, rest, ok := strings.Cut(session, legacyDelimiter2)
		if !ok {
			return nil, fmt.Errorf("%w: missing verifier id", ErrInvalidIdentity)
		}
		tag, rest, ok := strings.Cut(rest, legacyDelimiter3)
		if !ok {
			return nil, fmt.Errorf("%w: missing tag", ErrInvalidIdentity)
		}
		nonce, random, ok := strings.Cut(rest, legacyDelimiter4)
		if !ok {
			return nil, fmt.Errorf("%w: missing nonce", ErrInvalidIdentity)
		}
		n, err := strconv.ParseUint(nonce, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: nonce: %v", ErrInvalidIdentity, err)
		}
		randomNonce, err := hex.DecodeString(random)
		if err != nil {
			return nil, fmt.Errorf("%w: random nonce: %v", ErrInvalidIdentity, err)
		}
		id = Identity{VerifierID: vid, Tag: tag, Nonce: uint32(n), RandomNonce: randomNonce}
	}
	if err := id.validate(); err != nil {
		return nil, err
	}
	return &id, nil
}

