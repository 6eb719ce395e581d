package factors

import (
	"context"

	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

// ReshareRequest asks the custodial servers for a fresh sharing of the tss key.
type ReshareRequest struct {
	VerifierID string
	Tag        string
	// Nonce and Commitments describe the current sharing.
	Nonce       uint32
	Commitments []curve.Point
	// Input is the caller's share of the current sharing.
	Input *share.Share
	// Factors and Indexes are the factors that receive a share of the new sharing.
	Factors []curve.Point
	Indexes []party.ID
	// Servers are the custodial servers taking part, a random majority.
	Servers    []party.ID
	Signatures []string
}

// ReshareResult is the new sharing.
type ReshareResult struct {
	Nonce       uint32
	Commitments []curve.Point
	// Encs holds the new encrypted share material, keyed by factor.ID.
	Encs map[string]*factor.Encryption
}

// Resharer runs the re-share protocol with the custodial servers.
type Resharer interface {
	Reshare(ctx context.Context, req ReshareRequest) (*ReshareResult, error)
}
