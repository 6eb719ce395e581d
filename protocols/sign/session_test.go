package sign

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/dkls"
	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Connect(ctx context.Context, params Params) (Client, error) {
	args := m.Called(ctx, params)
	client, _ := args.Get(0).(Client)
	return client, args.Error(1)
}

type mockClient struct {
	mock.Mock
	calls []string
}

func (m *mockClient) Precompute(ctx context.Context, params PrecomputeParams) error {
	m.calls = append(m.calls, "precompute")
	return m.Called(ctx, params).Error(0)
}

func (m *mockClient) Ready(ctx context.Context) error {
	m.calls = append(m.calls, "ready")
	return m.Called(ctx).Error(0)
}

func (m *mockClient) Sign(ctx context.Context, params SignParams) (*ecdsa.Signature, error) {
	m.calls = append(m.calls, "sign")
	args := m.Called(ctx, params)
	sig, _ := args.Get(0).(*ecdsa.Signature)
	return sig, args.Error(1)
}

func (m *mockClient) Cleanup(ctx context.Context, signatures []string) error {
	m.calls = append(m.calls, "cleanup")
	return m.Called(ctx, signatures).Error(0)
}

type account struct {
	secret curve.Scalar
	pub    curve.Point
	share  *share.Share
}

func newAccount(index party.ID) account {
	group := curve.Secp256k1{}
	secret := sample.Scalar(rand.Reader, group)
	f := polynomial.NewPolynomial(group, 1, secret, rand.Reader)
	return account{
		secret: secret,
		pub:    secret.ActOnBase(),
		share:  &share.Share{Index: index, Value: f.Evaluate(index.Scalar(group))},
	}
}

func (a account) request(message []byte, prehashed bool) Request {
	return Request{
		Message:    message,
		Prehashed:  prehashed,
		VerifierID: "verifier|user",
		Tag:        "default",
		Nonce:      1,
		PublicKey:  a.pub,
		Share:      a.share,
		Signatures: []string{`{"data":"token","sig":"signature"}`},
	}
}

func newTestSigner(t *testing.T, engine Engine) *Signer {
	signer, err := NewSigner(engine, DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return signer
}

func TestSigner_Sign(t *testing.T) {
	acc := newAccount(2)
	req := acc.request([]byte("hello"), false)
	digest := ecdsa.Keccak256([]byte("hello"))
	expected, err := ecdsa.Sign(acc.secret, digest)
	require.NoError(t, err)

	client := &mockClient{}
	engine := &mockEngine{}
	engine.On("Connect", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Precompute", mock.Anything, mock.MatchedBy(func(p PrecomputeParams) bool {
		return len(p.ServerCoeffs) == 3 && len(p.Signatures) == 1
	})).Return(nil)
	client.On("Ready", mock.Anything).Return(nil)
	client.On("Sign", mock.Anything, SignParams{
		MsgHash:       base64.StdEncoding.EncodeToString(digest),
		HashAlgorithm: HashAlgorithm,
		Signatures:    req.Signatures,
	}).Return(expected, nil)
	client.On("Cleanup", mock.Anything, req.Signatures).Return(nil)

	session, err := newTestSigner(t, engine).NewSession(req)
	require.NoError(t, err)
	sig, err := session.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sig.Verify(acc.pub, digest))
	assert.Equal(t, StateCleanedUp, session.State())
	assert.Equal(t, []string{"precompute", "ready", "sign", "cleanup"}, client.calls)
	engine.AssertExpectations(t)
	client.AssertExpectations(t)

	params := session.Params()
	assert.Equal(t, 3, params.ClientIndex)
	assert.Equal(t, []int{0, 1, 2, 3}, params.Parties)
	assert.Equal(t, party.IDSlice{1, 2, 3}, party.IDSlice(params.ServerIndexes))
	assert.Equal(t, session.ID, params.Session)

	shareBytes, err := base64.StdEncoding.DecodeString(params.Share)
	require.NoError(t, err)
	require.Len(t, shareBytes, 32)
	denormalized, err := dkls.Denormalize(acc.share, []party.ID{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, curve.ScalarBytes(denormalized), shareBytes)

	pubBytes, err := base64.StdEncoding.DecodeString(params.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, curve.Uncompressed(acc.pub)[1:], pubBytes)

	_, err = session.Run(context.Background())
	assert.Error(t, err)
}

func TestSigner_Prehashed(t *testing.T) {
	acc := newAccount(3)
	digest, err := hex.DecodeString("deadbeef00000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	expected, err := ecdsa.Sign(acc.secret, digest)
	require.NoError(t, err)

	client := &mockClient{}
	engine := &mockEngine{}
	engine.On("Connect", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Precompute", mock.Anything, mock.Anything).Return(nil)
	client.On("Ready", mock.Anything).Return(nil)
	client.On("Sign", mock.Anything, mock.MatchedBy(func(p SignParams) bool {
		return p.MsgHash == base64.StdEncoding.EncodeToString(digest)
	})).Return(expected, nil)
	client.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	sig, err := newTestSigner(t, engine).Sign(context.Background(), acc.request(digest, true))
	require.NoError(t, err)
	assert.Len(t, sig.RHex(), 64)
	assert.Len(t, sig.SHex(), 64)
	recovered, err := sig.RecoverPublicKey(digest)
	require.NoError(t, err)
	assert.True(t, recovered.Equal(acc.pub))

	_, err = newTestSigner(t, engine).Sign(context.Background(), acc.request([]byte("short"), true))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSigner_InvalidSignature(t *testing.T) {
	group := curve.Secp256k1{}
	acc := newAccount(2)
	req := acc.request([]byte("hello"), false)
	forged, err := ecdsa.Sign(sample.Scalar(rand.Reader, group), ecdsa.Keccak256([]byte("hello")))
	require.NoError(t, err)

	client := &mockClient{}
	engine := &mockEngine{}
	engine.On("Connect", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Precompute", mock.Anything, mock.Anything).Return(nil)
	client.On("Ready", mock.Anything).Return(nil)
	client.On("Sign", mock.Anything, mock.Anything).Return(forged, nil)
	client.On("Cleanup", mock.Anything, mock.Anything).Return(nil)

	session, err := newTestSigner(t, engine).NewSession(req)
	require.NoError(t, err)
	_, err = session.Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidSignature)
	var sessionErr Error
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, StateSigned, sessionErr.State)
	assert.Equal(t, StateCleanedUp, session.State())
	// cleanup runs after the failed verification
	assert.Equal(t, []string{"precompute", "ready", "sign", "cleanup"}, client.calls)
}

func TestSigner_SetupTimeout(t *testing.T) {
	acc := newAccount(2)
	client := &mockClient{}
	engine := &mockEngine{}
	engine.On("Connect", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Precompute", mock.Anything, mock.Anything).Return(nil)
	client.On("Ready", mock.Anything).Return(context.DeadlineExceeded)
	client.On("Cleanup", mock.Anything, mock.Anything).Return(errors.New("socket closed"))

	_, err := newTestSigner(t, engine).Sign(context.Background(), acc.request([]byte("hello"), false))
	require.ErrorIs(t, err, ErrSessionSetupTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var sessionErr Error
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, StatePrecomputeStarted, sessionErr.State)
	assert.Equal(t, []string{"precompute", "ready", "cleanup"}, client.calls)
	client.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestSigner_ConnectFailure(t *testing.T) {
	acc := newAccount(2)
	engine := &mockEngine{}
	engine.On("Connect", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	session, err := newTestSigner(t, engine).NewSession(acc.request([]byte("hello"), false))
	require.NoError(t, err)
	_, err = session.Run(context.Background())
	var sessionErr Error
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, StateCreated, sessionErr.State)
	assert.Equal(t, StateFailed, session.State())
}

func TestSigner_MissingAuthentication(t *testing.T) {
	acc := newAccount(2)
	engine := &mockEngine{}
	req := acc.request([]byte("hello"), false)
	req.Signatures = nil

	_, err := newTestSigner(t, engine).Sign(context.Background(), req)
	assert.ErrorIs(t, err, ErrMissingAuthentication)
	engine.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Servers: []party.ID{2, 1}, Version: VersionStructured}.Validate())
	assert.Error(t, Config{Servers: []party.ID{1, 2}}.Validate())
	assert.Error(t, Config{Version: VersionLegacy}.Validate())

	_, err := NewSigner(nil, DefaultConfig(), zerolog.Nop())
	assert.Error(t, err)
}
