// Package ecies encrypts factor shares to secp256k1 public keys.
//
// The construction matches the eccrypto wire format used by existing metadata:
// ECDH on secp256k1, SHA-512 of the shared x coordinate split into an AES-256-CBC
// key and an HMAC-SHA256 key, and a MAC over iv ‖ ephemeral public key ‖ ciphertext.
package ecies

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
)

// ErrDecryptionFailed is returned when the MAC does not match, or the ciphertext is malformed.
var ErrDecryptionFailed = errors.New("ecies: decryption failed")

const ivSize = aes.BlockSize

// HexBytes is a byte slice that is represented as a hex string in JSON.
type HexBytes []byte

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

func (h *HexBytes) UnmarshalText(text []byte) error {
	data, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	*h = data
	return nil
}

// Ciphertext is an encrypted message, in eccrypto format.
type Ciphertext struct {
	IV             HexBytes `json:"iv" cbor:"1,keyasint"`
	EphemPublicKey HexBytes `json:"ephemPublicKey" cbor:"2,keyasint"`
	Ciphertext     HexBytes `json:"ciphertext" cbor:"3,keyasint"`
	MAC            HexBytes `json:"mac" cbor:"4,keyasint"`
}

// Size returns the total length of the encrypted payload, which may be logged.
func (c *Ciphertext) Size() int {
	if c == nil {
		return 0
	}
	return len(c.IV) + len(c.EphemPublicKey) + len(c.Ciphertext) + len(c.MAC)
}

// Encrypt encrypts msg to the public key pub.
func Encrypt(rand io.Reader, pub curve.Point, msg []byte) (*Ciphertext, error) {
	if pub == nil || pub.IsIdentity() {
		return nil, errors.New("ecies: invalid public key")
	}
	ephemeral, err := secp256k1.GeneratePrivateKeyFromRand(rand)
	if err != nil {
		return nil, fmt.Errorf("ecies: generate ephemeral key: %w", err)
	}
	defer ephemeral.Zero()

	iv := make([]byte, ivSize)
	if _, err = io.ReadFull(rand, iv); err != nil {
		return nil, fmt.Errorf("ecies: generate iv: %w", err)
	}

	encKey, macKey := deriveKeys(ephemeral, curve.PublicKey(pub))

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("ecies: create cipher: %w", err)
	}
	padded := pkcs7Pad(msg, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	ephemPub := ephemeral.PubKey().SerializeUncompressed()
	return &Ciphertext{
		IV:             iv,
		EphemPublicKey: ephemPub,
		Ciphertext:     ciphertext,
		MAC:            mac(macKey, iv, ephemPub, ciphertext),
	}, nil
}

// Decrypt decrypts c with the private key.
// Any failure is reported as ErrDecryptionFailed.
func Decrypt(key curve.Scalar, c *Ciphertext) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: missing ciphertext", ErrDecryptionFailed)
	}
	if len(c.IV) != ivSize || len(c.Ciphertext) == 0 || len(c.Ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecryptionFailed)
	}
	ephemPub, err := secp256k1.ParsePubKey(c.EphemPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral public key: %v", ErrDecryptionFailed, err)
	}

	priv := curve.PrivateKey(key)
	defer priv.Zero()
	encKey, macKey := deriveKeys(priv, ephemPub)

	if !hmac.Equal(c.MAC, mac(macKey, c.IV, c.EphemPublicKey, c.Ciphertext)) {
		return nil, fmt.Errorf("%w: bad mac", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext := make([]byte, len(c.Ciphertext))
	cipher.NewCBCDecrypter(block, c.IV).CryptBlocks(plaintext, c.Ciphertext)
	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// EncryptScalar encrypts the fixed-width encoding of s.
func EncryptScalar(rand io.Reader, pub curve.Point, s curve.Scalar) (*Ciphertext, error) {
	return Encrypt(rand, pub, curve.ScalarBytes(s))
}

// DecryptScalar decrypts a big-endian scalar. Encodings shorter than 32 bytes are accepted.
func DecryptScalar(key curve.Scalar, c *Ciphertext) (curve.Scalar, error) {
	plaintext, err := Decrypt(key, c)
	if err != nil {
		return nil, err
	}
	s, err := curve.ScalarFromBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return s, nil
}

// deriveKeys returns the AES and HMAC keys shared by priv and pub.
func deriveKeys(priv *secp256k1.PrivateKey, pub *secp256k1.PublicKey) (encKey, macKey []byte) {
	// the shared x coordinate is always 32 bytes
	shared := secp256k1.GenerateSharedSecret(priv, pub)
	h := sha512.Sum512(shared)
	encKey = make([]byte, 32)
	macKey = make([]byte, 32)
	copy(encKey, h[:32])
	copy(macKey, h[32:])
	return encKey, macKey
}

func mac(key []byte, parts ...[]byte) []byte {
	h := hmac.New(sha256.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padding size")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
