package account

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/taurusgroup/tss-factors/api/signer"
	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/protocols/sign"
)

// AddThirdPartySigner authorizes the factor key of a remote signing server with the
// device factor's share, and syncs the metadata. It returns the server's factor public key.
func (c *Client) AddThirdPartySigner(ctx context.Context, actx *Context, remote *signer.Client) (curve.Point, error) {
	pub, err := remote.FactorPub(ctx)
	if err != nil {
		return nil, err
	}
	if err = c.CopyFactor(ctx, actx, pub); err != nil {
		return nil, err
	}
	c.Log.Info().Str("factor", factor.ID(pub)).Msg("added third party signer")
	return pub, nil
}

// RemoteSign asks the signing server whose factor public key is pub to sign msg.
// msg is hashed with Keccak-256 by the server, unless prehashed is set.
func (c *Client) RemoteSign(ctx context.Context, actx *Context, remote *signer.Client, pub curve.Point, msg []byte, prehashed bool) (*ecdsa.Signature, error) {
	data, err := actx.Current()
	if err != nil {
		return nil, err
	}
	enc, ok := data.Factors.Encryption(pub)
	if !ok {
		return nil, errors.New("account: signing server is not a factor of the account")
	}
	tssPub, err := data.PublicKey()
	if err != nil {
		return nil, err
	}

	sig, err := remote.Sign(ctx, &signer.SignRequest{
		MsgHash:    hex.EncodeToString(msg),
		Prehashed:  prehashed,
		VerifierID: actx.VerifierID,
		TSSTag:     actx.Metadata.Tag,
		TSSNonce:   data.Nonce,
		TSSPubKey:  curve.NewJSONPoint(tssPub),
		Signatures: actx.Signatures,
		FactorEncs: enc,
		TSSCommits: factor.PointsToJSON(data.Commitments),
	})
	if err != nil {
		return nil, err
	}

	digest := msg
	if !prehashed {
		digest = ecdsa.Keccak256(msg)
	}
	if !sig.Verify(tssPub, digest) {
		return nil, fmt.Errorf("account: remote %w", sign.ErrInvalidSignature)
	}
	return sig, nil
}

// Sign signs msg with the device factor's share through local.
func (c *Client) Sign(ctx context.Context, actx *Context, local *sign.Signer, msg []byte) (*ecdsa.Signature, error) {
	data, err := actx.Current()
	if err != nil {
		return nil, err
	}
	s, err := c.DeviceShare(ctx, actx)
	if err != nil {
		return nil, err
	}
	tssPub, err := data.PublicKey()
	if err != nil {
		return nil, err
	}
	return local.Sign(ctx, sign.Request{
		Message:    msg,
		VerifierID: actx.VerifierID,
		Tag:        actx.Metadata.Tag,
		Nonce:      data.Nonce,
		PublicKey:  tssPub,
		Share:      s,
		Signatures: actx.Signatures,
	})
}
