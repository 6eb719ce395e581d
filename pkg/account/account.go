// Package account implements the client side flows of a tss account: creating it,
// signing with the device factor, and managing the factors that can sign.
//
// All flows take an explicit Context describing the account. Changes to the factor set
// are written back to the metadata store in a single manual sync.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/metadata"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
	"github.com/taurusgroup/tss-factors/protocols/factors"
)

// DeviceTSSIndex is the share index of the device factor of a new account.
const DeviceTSSIndex party.ID = 2

// Context describes an account.
type Context struct {
	VerifierID string
	// AccountKey addresses the account's metadata in the store.
	AccountKey curve.Scalar
	// FactorKey is the private key of the device factor.
	FactorKey  curve.Scalar
	Signatures []string
	Metadata   *factor.Metadata
}

// Current returns the tag data of the active tag.
func (c *Context) Current() (*factor.TagData, error) {
	if c.Metadata == nil {
		return nil, errors.New("account: metadata not loaded")
	}
	return c.Metadata.Current()
}

func (c *Context) auth() factors.Auth {
	return factors.Auth{
		FactorKey:  c.FactorKey,
		VerifierID: c.VerifierID,
		Tag:        c.Metadata.Tag,
		Signatures: c.Signatures,
	}
}

// Dealer creates new tss keys.
type Dealer interface {
	NewKey(verifierID, tag string, pub curve.Point, index party.ID) (*factor.TagData, error)
}

// Client runs account flows.
type Client struct {
	Store         *metadata.Store
	Mutator       *factors.Mutator
	Reconstructor *share.Reconstructor
	Log           zerolog.Logger
}

func NewClient(store *metadata.Store, mutator *factors.Mutator, log zerolog.Logger) *Client {
	return &Client{
		Store:         store,
		Mutator:       mutator,
		Reconstructor: share.NewReconstructor(log),
		Log:           log,
	}
}

// Create deals a new key with the device factor as its only factor, and stores the metadata.
func (c *Client) Create(ctx context.Context, dealer Dealer, verifierID string, accountKey, factorKey curve.Scalar, signatures []string) (*Context, error) {
	data, err := dealer.NewKey(verifierID, factor.DefaultTag, factorKey.ActOnBase(), DeviceTSSIndex)
	if err != nil {
		return nil, fmt.Errorf("account: deal key: %w", err)
	}
	md := &factor.Metadata{
		VerifierID: verifierID,
		Tag:        factor.DefaultTag,
		Tags:       map[string]*factor.TagData{factor.DefaultTag: data},
	}
	if err = c.Store.Set(ctx, accountKey, md); err != nil {
		return nil, err
	}
	c.Log.Info().Str("vid", verifierID).Str("factor", factor.ID(factorKey.ActOnBase())).Msg("account created")
	return &Context{
		VerifierID: verifierID,
		AccountKey: accountKey,
		FactorKey:  factorKey,
		Signatures: signatures,
		Metadata:   md,
	}, nil
}

// Load reads the metadata of an existing account.
func (c *Client) Load(ctx context.Context, verifierID string, accountKey, factorKey curve.Scalar, signatures []string) (*Context, error) {
	var md factor.Metadata
	if err := c.Store.Get(ctx, accountKey, &md); err != nil {
		return nil, err
	}
	if md.VerifierID != verifierID {
		return nil, fmt.Errorf("account: metadata belongs to %q", md.VerifierID)
	}
	return &Context{
		VerifierID: verifierID,
		AccountKey: accountKey,
		FactorKey:  factorKey,
		Signatures: signatures,
		Metadata:   &md,
	}, nil
}

// DeviceShare recovers the share held by the device factor.
func (c *Client) DeviceShare(ctx context.Context, actx *Context) (*share.Share, error) {
	data, err := actx.Current()
	if err != nil {
		return nil, err
	}
	enc, ok := data.Factors.Encryption(actx.FactorKey.ActOnBase())
	if !ok {
		return nil, fmt.Errorf("account: device %w", factors.ErrFactorNotFound)
	}
	commitment, err := data.Commitment()
	if err != nil {
		return nil, err
	}
	return c.Reconstructor.Reconstruct(ctx, enc, commitment, actx.FactorKey)
}

// sync writes data as the new state of the active tag. actx is only updated once the write succeeded.
func (c *Client) sync(ctx context.Context, actx *Context, data *factor.TagData) error {
	md := &factor.Metadata{
		VerifierID: actx.Metadata.VerifierID,
		Tag:        actx.Metadata.Tag,
		Tags:       make(map[string]*factor.TagData, len(actx.Metadata.Tags)),
	}
	for tag, d := range actx.Metadata.Tags {
		md.Tags[tag] = d
	}
	md.Tags[md.Tag] = data

	batch := c.Store.Batch()
	batch.Set(actx.AccountKey, md)
	if err := batch.Sync(ctx); err != nil {
		return fmt.Errorf("account: sync metadata: %w", err)
	}
	actx.Metadata = md
	return nil
}

// AddFactor authorizes pub at index, re-sharing the key, and syncs the metadata.
func (c *Client) AddFactor(ctx context.Context, actx *Context, pub curve.Point, index party.ID) error {
	data, err := actx.Current()
	if err != nil {
		return err
	}
	out, err := c.Mutator.Add(ctx, data, actx.auth(), pub, index)
	if err != nil {
		return err
	}
	return c.sync(ctx, actx, out)
}

// CopyFactor authorizes pub with the device factor's share, and syncs the metadata.
func (c *Client) CopyFactor(ctx context.Context, actx *Context, pub curve.Point) error {
	data, err := actx.Current()
	if err != nil {
		return err
	}
	index, err := data.Factors.Index(actx.FactorKey.ActOnBase())
	if err != nil {
		return err
	}
	out, err := c.Mutator.Copy(ctx, data, actx.auth(), pub, index)
	if err != nil {
		return err
	}
	return c.sync(ctx, actx, out)
}

// DeleteFactor removes pub, re-sharing the key, and syncs the metadata.
func (c *Client) DeleteFactor(ctx context.Context, actx *Context, pub curve.Point) error {
	data, err := actx.Current()
	if err != nil {
		return err
	}
	out, err := c.Mutator.Delete(ctx, data, actx.auth(), pub)
	if err != nil {
		return err
	}
	return c.sync(ctx, actx, out)
}
