package account

import (
	"context"
	"crypto/rand"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/api/signer"
	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/localnet"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/metadata"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/protocols/factors"
	"github.com/taurusgroup/tss-factors/protocols/sign"
)

type env struct {
	net    *localnet.Network
	client *Client
	signer *sign.Signer
}

func newEnv(t *testing.T) env {
	net, err := localnet.New(3, rand.Reader, zerolog.Nop())
	require.NoError(t, err)
	mutator, err := factors.NewMutator(net, 3, zerolog.Nop())
	require.NoError(t, err)
	local, err := sign.NewSigner(net, sign.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return env{
		net:    net,
		client: NewClient(metadata.NewStore(metadata.NewMemoryBackend(), zerolog.Nop()), mutator, zerolog.Nop()),
		signer: local,
	}
}

func (e env) create(t *testing.T) *Context {
	group := curve.Secp256k1{}
	actx, err := e.client.Create(context.Background(), e.net, "alice", sample.Scalar(rand.Reader, group), sample.Scalar(rand.Reader, group), []string{"sig"})
	require.NoError(t, err)
	return actx
}

func TestClient_CreateLoad(t *testing.T) {
	e := newEnv(t)
	actx := e.create(t)

	loaded, err := e.client.Load(context.Background(), "alice", actx.AccountKey, actx.FactorKey, actx.Signatures)
	require.NoError(t, err)
	data, err := loaded.Current()
	require.NoError(t, err)
	assert.True(t, data.Factors.Contains(actx.FactorKey.ActOnBase()))

	_, err = e.client.Load(context.Background(), "bob", actx.AccountKey, actx.FactorKey, actx.Signatures)
	assert.Error(t, err)

	s, err := e.client.DeviceShare(context.Background(), loaded)
	require.NoError(t, err)
	assert.Equal(t, DeviceTSSIndex, s.Index)
}

func TestClient_Sign(t *testing.T) {
	e := newEnv(t)
	actx := e.create(t)
	sig, err := e.client.Sign(context.Background(), actx, e.signer, []byte("hello"))
	require.NoError(t, err)
	data, err := actx.Current()
	require.NoError(t, err)
	assert.True(t, sig.Verify(data.Commitments[0], ecdsa.Keccak256([]byte("hello"))))
}

func TestClient_AddDeleteFactor(t *testing.T) {
	e := newEnv(t)
	actx := e.create(t)
	backup := sample.Scalar(rand.Reader, curve.Secp256k1{})

	require.NoError(t, e.client.AddFactor(context.Background(), actx, backup.ActOnBase(), 3))
	loaded, err := e.client.Load(context.Background(), "alice", actx.AccountKey, actx.FactorKey, actx.Signatures)
	require.NoError(t, err)
	data, err := loaded.Current()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), data.Nonce)
	index, err := data.Factors.Index(backup.ActOnBase())
	require.NoError(t, err)
	assert.Equal(t, party.ID(3), index)

	// signing still works after the re-share
	_, err = e.client.Sign(context.Background(), actx, e.signer, []byte("after add"))
	require.NoError(t, err)

	require.NoError(t, e.client.DeleteFactor(context.Background(), actx, backup.ActOnBase()))
	data, err = actx.Current()
	require.NoError(t, err)
	assert.False(t, data.Factors.Contains(backup.ActOnBase()))
	assert.Equal(t, uint32(2), data.Nonce)
}

func TestClient_ThirdPartySigner(t *testing.T) {
	e := newEnv(t)
	actx := e.create(t)

	serverKey := sample.Scalar(rand.Reader, curve.Secp256k1{})
	handler, err := signer.NewHandler(serverKey, e.signer, zerolog.Nop())
	require.NoError(t, err)
	srv, err := signer.New(signer.DefaultConfig(), handler, zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	remote := signer.NewClient(ts.URL)

	// not yet authorized
	_, err = e.client.RemoteSign(context.Background(), actx, remote, serverKey.ActOnBase(), []byte("hello"), false)
	assert.Error(t, err)

	pub, err := e.client.AddThirdPartySigner(context.Background(), actx, remote)
	require.NoError(t, err)
	assert.True(t, pub.Equal(serverKey.ActOnBase()))

	// the copy was synced
	loaded, err := e.client.Load(context.Background(), "alice", actx.AccountKey, actx.FactorKey, actx.Signatures)
	require.NoError(t, err)
	data, err := loaded.Current()
	require.NoError(t, err)
	enc, ok := data.Factors.Encryption(pub)
	require.True(t, ok)
	assert.Equal(t, factor.TypeDirect, enc.Type)
	assert.Equal(t, DeviceTSSIndex, enc.TSSIndex)

	sig, err := e.client.RemoteSign(context.Background(), loaded, remote, pub, []byte("hello"), false)
	require.NoError(t, err)
	assert.True(t, sig.Verify(data.Commitments[0], ecdsa.Keccak256([]byte("hello"))))

	digest := ecdsa.Keccak256([]byte("prehashed"))
	sig, err = e.client.RemoteSign(context.Background(), loaded, remote, pub, digest, true)
	require.NoError(t, err)
	assert.True(t, sig.Verify(data.Commitments[0], digest))
}
