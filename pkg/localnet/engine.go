package localnet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/taurusgroup/tss-factors/pkg/dkls"
	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/protocols/sign"
	"golang.org/x/sync/errgroup"
)

// Connect starts a signing session with the servers listed in params.
//
// The servers' inputs are weighted the way the DKLS engine weights them, so a session
// only produces a valid signature when the client's share and the coefficients are right.
func (n *Network) Connect(ctx context.Context, params sign.Params) (sign.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	identity, err := sign.ParseIdentity(params.Session)
	if err != nil {
		return nil, err
	}
	servers := party.IDSlice(params.ServerIndexes)
	if !servers.Valid() || len(servers) == 0 {
		return nil, fmt.Errorf("localnet: invalid servers %v", servers)
	}
	if params.ClientIndex != dkls.ClientPosition(servers) || len(params.Parties) != dkls.Parties(servers) {
		return nil, fmt.Errorf("localnet: unexpected party layout, client at %d of %d", params.ClientIndex, len(params.Parties))
	}

	rawShare, err := base64.StdEncoding.DecodeString(params.Share)
	if err != nil {
		return nil, fmt.Errorf("localnet: share: %w", err)
	}
	input, err := curve.ScalarFromBytes(rawShare)
	if err != nil {
		return nil, err
	}
	rawPub, err := base64.StdEncoding.DecodeString(params.PublicKey)
	if err != nil || len(rawPub) != 64 {
		return nil, errors.New("localnet: public key must be 64 base64 encoded bytes")
	}
	pub, err := curve.PointFromCoordinates(rawPub[:32], rawPub[32:])
	if err != nil {
		return nil, err
	}

	for _, id := range servers {
		node, ok := n.nodes[id]
		if !ok {
			return nil, fmt.Errorf("localnet: no server %d", id)
		}
		if err = node.online(); err != nil {
			return nil, err
		}
	}

	n.Log.Debug().Str("session", params.Session).Stringer("servers", servers).Msg("session connected")
	return &client{
		net:      n,
		identity: identity,
		session:  params.Session,
		servers:  servers,
		input:    input,
		pub:      pub,
		inputs:   make(map[party.ID]curve.Scalar, len(servers)),
	}, nil
}

var _ sign.Engine = (*Network)(nil)

type client struct {
	net      *Network
	identity *sign.Identity
	session  string
	servers  party.IDSlice
	input    curve.Scalar
	pub      curve.Point

	mtx    sync.Mutex
	inputs map[party.ID]curve.Scalar
}

// Precompute has every server weight its share by its coefficient.
func (c *client) Precompute(ctx context.Context, params sign.PrecomputeParams) error {
	if len(params.Signatures) == 0 {
		return ErrUnauthorized
	}
	group := c.net.Group
	eg, ctx := errgroup.WithContext(ctx)
	for _, id := range c.servers {
		id := id
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			coeffHex, ok := params.ServerCoeffs[id.String()]
			if !ok {
				return fmt.Errorf("localnet: no coefficient for server %d", id)
			}
			coeff, err := curve.ScalarFromHex(coeffHex)
			if err != nil {
				return err
			}
			node := c.net.nodes[id]
			value, err := node.share(c.identity.VerifierID, c.identity.Tag, c.identity.Nonce)
			if err != nil {
				return err
			}
			node.open(c.session)

			c.mtx.Lock()
			c.inputs[id] = group.NewScalar().Set(value).Mul(coeff)
			c.mtx.Unlock()
			return nil
		})
	}
	return eg.Wait()
}

// Ready returns once every server has its input.
func (c *client) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if len(c.inputs) != len(c.servers) {
		return fmt.Errorf("localnet: %d of %d servers precomputed", len(c.inputs), len(c.servers))
	}
	return nil
}

// Sign combines the inputs of all parties and signs the hash.
func (c *client) Sign(ctx context.Context, params sign.SignParams) (*ecdsa.Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(params.Signatures) == 0 {
		return nil, ErrUnauthorized
	}
	if params.HashAlgorithm != sign.HashAlgorithm {
		return nil, fmt.Errorf("localnet: unsupported hash algorithm %q", params.HashAlgorithm)
	}
	hash, err := base64.StdEncoding.DecodeString(params.MsgHash)
	if err != nil {
		return nil, fmt.Errorf("localnet: message hash: %w", err)
	}
	for _, id := range c.servers {
		if err = c.net.nodes[id].online(); err != nil {
			return nil, err
		}
	}

	group := c.net.Group
	parties := dkls.Parties(c.servers)
	c.mtx.Lock()
	defer c.mtx.Unlock()

	x := group.NewScalar()
	for position, id := range c.servers {
		input, ok := c.inputs[id]
		if !ok {
			return nil, fmt.Errorf("localnet: server %d did not precompute", id)
		}
		weight, err := dkls.Normalization(group, parties, position)
		if err != nil {
			return nil, err
		}
		x.Add(weight.Mul(input))
	}
	weight, err := dkls.Normalization(group, parties, dkls.ClientPosition(c.servers))
	if err != nil {
		return nil, err
	}
	x.Add(weight.Mul(c.input))

	// A wrong share still yields a signature, for a different key.
	if !x.ActOnBase().Equal(c.pub) {
		c.net.Log.Warn().Str("session", c.session).Msg("combined inputs do not match the tss public key")
	}
	return ecdsa.Sign(x, hash)
}

// Cleanup releases the session on every server.
func (c *client) Cleanup(_ context.Context, _ []string) error {
	for _, id := range c.servers {
		c.net.nodes[id].close(c.session)
	}
	return nil
}
