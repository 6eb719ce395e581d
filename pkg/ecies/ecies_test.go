package ecies

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
)

func TestEncryptDecrypt(t *testing.T) {
	group := curve.Secp256k1{}
	key := sample.Scalar(rand.Reader, group)
	pub := key.ActOnBase()

	for _, msg := range [][]byte{{}, []byte("hello"), make([]byte, 32), make([]byte, 100)} {
		c, err := Encrypt(rand.Reader, pub, msg)
		require.NoError(t, err)
		assert.Len(t, c.IV, 16)
		assert.Len(t, c.EphemPublicKey, 65)
		assert.Len(t, c.MAC, 32)
		assert.Zero(t, len(c.Ciphertext)%16)

		plaintext, err := Decrypt(key, c)
		require.NoError(t, err)
		assert.Equal(t, msg, plaintext)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	group := curve.Secp256k1{}
	key := sample.Scalar(rand.Reader, group)
	other := sample.Scalar(rand.Reader, group)

	c, err := EncryptScalar(rand.Reader, key.ActOnBase(), other)
	require.NoError(t, err)

	_, err = DecryptScalar(other, c)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	s, err := DecryptScalar(key, c)
	require.NoError(t, err)
	assert.True(t, s.Equal(other))
}

func TestDecrypt_Tampered(t *testing.T) {
	group := curve.Secp256k1{}
	key := sample.Scalar(rand.Reader, group)
	c, err := Encrypt(rand.Reader, key.ActOnBase(), []byte("share"))
	require.NoError(t, err)

	tampered := *c
	tampered.Ciphertext = append(HexBytes{}, c.Ciphertext...)
	tampered.Ciphertext[0] ^= 1
	_, err = Decrypt(key, &tampered)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	tampered = *c
	tampered.IV = c.IV[:8]
	_, err = Decrypt(key, &tampered)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	tampered = *c
	tampered.EphemPublicKey = HexBytes{4, 1, 2}
	_, err = Decrypt(key, &tampered)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Decrypt(key, nil)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCiphertext_JSON(t *testing.T) {
	group := curve.Secp256k1{}
	key := sample.Scalar(rand.Reader, group)
	c, err := Encrypt(rand.Reader, key.ActOnBase(), []byte("share"))
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields["iv"], 32)
	assert.Len(t, fields["ephemPublicKey"], 130)
	assert.Len(t, fields["mac"], 64)
	assert.NotEmpty(t, fields["ciphertext"])

	var decoded Ciphertext
	require.NoError(t, json.Unmarshal(data, &decoded))
	plaintext, err := Decrypt(key, &decoded)
	require.NoError(t, err)
	assert.Equal(t, []byte("share"), plaintext)
}
