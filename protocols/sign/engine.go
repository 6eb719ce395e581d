package sign

import (
	"context"

	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

// Params describe the client's side of a multiparty signing session.
type Params struct {
	// Session is the encoded session identity.
	Session string
	// ClientIndex is the client's position among the parties.
	ClientIndex int
	// Parties lists the positions 0, …, N-1 of all parties.
	Parties []int
	// ServerIndexes maps server positions to the servers' DKG indexes.
	ServerIndexes []party.ID
	// Share is the base64 encoding of the client's denormalized share, 32 bytes big-endian.
	Share string
	// PublicKey is the base64 encoding of the 64 byte x ∥ y tss public key.
	PublicKey string
}

// PrecomputeParams are sent to every server to start precomputation.
type PrecomputeParams struct {
	Signatures []string
	// ServerCoeffs are the servers' DKLS coefficients, keyed by decimal DKG index, in hex.
	ServerCoeffs map[string]string
}

// SignParams are sent to every server to produce the signature.
type SignParams struct {
	// MsgHash is the base64 encoding of the 32 byte digest.
	MsgHash string
	// HashAlgorithm names the function that produced MsgHash.
	HashAlgorithm string
	Signatures    []string
}

// Engine is the multiparty signing engine.
type Engine interface {
	// Connect sets up the connections to all servers of the session.
	Connect(ctx context.Context, params Params) (Client, error)
}

// Client is the client's handle on a running multiparty signing session.
type Client interface {
	// Precompute asks all parties to start precomputation.
	Precompute(ctx context.Context, params PrecomputeParams) error
	// Ready blocks until every party has finished precomputation.
	Ready(ctx context.Context) error
	// Sign runs the online signing phase.
	Sign(ctx context.Context, params SignParams) (*ecdsa.Signature, error)
	// Cleanup releases the resources held by all parties for the session.
	Cleanup(ctx context.Context, signatures []string) error
}
