package signer

import (
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
)

// FactorPubResponse is returned by GET /factorPub.
type FactorPubResponse struct {
	FactorPub curve.JSONPoint `json:"factorPub"`
}

// SignRequest is the body of POST /sign.
type SignRequest struct {
	// MsgHash is the hex encoded message. It is hashed with Keccak-256 unless Prehashed is set,
	// in which case it must be 32 bytes.
	MsgHash    string             `json:"msgHash"`
	Prehashed  bool               `json:"prehashed,omitempty"`
	VerifierID string             `json:"vid"`
	// TSSTag defaults to "default".
	TSSTag     string             `json:"tssTag,omitempty"`
	TSSNonce   uint32             `json:"tssNonce"`
	TSSPubKey  curve.JSONPoint    `json:"tssPubKey"`
	Signatures []string           `json:"signatures"`
	FactorEncs *factor.Encryption `json:"factorEncs"`
	TSSCommits []curve.JSONPoint  `json:"tssCommits"`
}

// SignResponse is returned by POST /sign. R and S are 64 hex characters.
type SignResponse struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// Error codes returned in ErrorResponse.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeMissingAuthentication = "missing_authentication"
	CodeDecryptionFailed      = "decryption_failed"
	CodeShareMismatch         = "share_mismatch"
	CodeSessionSetupTimeout   = "session_setup_timeout"
	CodeInvalidSignature      = "invalid_signature"
	CodeUnavailable           = "unavailable"
	CodeInternal              = "internal"
)

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non 2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
