package signer

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/ecies"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/share"
	"github.com/taurusgroup/tss-factors/protocols/sign"
)

// Handler serves the signing API of a third party signer, which holds one factor key.
type Handler struct {
	factorKey     curve.Scalar
	reconstructor *share.Reconstructor
	signer        *sign.Signer
	maxBodySize   int64
	log           zerolog.Logger
}

// NewHandler returns a Handler signing with the share encrypted to factorKey.
func NewHandler(factorKey curve.Scalar, signer *sign.Signer, log zerolog.Logger) (*Handler, error) {
	if factorKey == nil || factorKey.IsZero() {
		return nil, errors.New("signer: missing factor key")
	}
	if signer == nil {
		return nil, errors.New("signer: nil signer")
	}
	return &Handler{
		factorKey:     factorKey,
		reconstructor: share.NewReconstructor(log),
		signer:        signer,
		maxBodySize:   DefaultConfig().MaxBodySize,
		log:           log,
	}, nil
}

// FactorPub returns the public key that share material must be encrypted to.
func (h *Handler) FactorPub() curve.Point {
	return h.factorKey.ActOnBase()
}

// Workers returns the number of goroutines checking share combinations.
func (h *Handler) Workers() int {
	return h.reconstructor.Pool.Workers()
}

// HandleFactorPub serves GET /factorPub.
func (h *Handler) HandleFactorPub(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FactorPubResponse{FactorPub: curve.NewJSONPoint(h.FactorPub())})
}

// HandleSign serves POST /sign.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	if log.GetLevel() == zerolog.Disabled {
		log = &h.log
	}

	var body SignRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, log, fmt.Errorf("%w: decode body: %v", sign.ErrInvalidRequest, err))
		return
	}
	req, err := h.request(&body)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	enc := body.FactorEncs
	commitments, err := polynomial.NewExponent(curve.Secp256k1{}, req.commitments)
	if err != nil {
		h.writeError(w, log, fmt.Errorf("%w: %v", sign.ErrInvalidRequest, err))
		return
	}
	s, err := h.reconstructor.Reconstruct(r.Context(), enc, commitments, h.factorKey)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	req.Share = s

	sig, err := h.signer.Sign(r.Context(), req.Request)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	log.Info().
		Str("vid", body.VerifierID).
		Uint32("tss_nonce", body.TSSNonce).
		Uint32("tss_index", uint32(s.Index)).
		Msg("signed")
	writeJSON(w, http.StatusOK, SignResponse{R: sig.RHex(), S: sig.SHex(), V: int(sig.V)})
}

type signRequest struct {
	sign.Request
	commitments []curve.Point
}

func (h *Handler) request(body *SignRequest) (*signRequest, error) {
	if len(body.Signatures) == 0 {
		return nil, sign.ErrMissingAuthentication
	}
	if body.VerifierID == "" {
		return nil, fmt.Errorf("%w: missing vid", sign.ErrInvalidRequest)
	}
	if body.FactorEncs == nil {
		return nil, fmt.Errorf("%w: missing factorEncs", sign.ErrInvalidRequest)
	}
	msg, err := hex.DecodeString(strings.TrimPrefix(body.MsgHash, "0x"))
	if err != nil || len(msg) == 0 {
		return nil, fmt.Errorf("%w: msgHash must be non empty hex", sign.ErrInvalidRequest)
	}
	pub, err := body.TSSPubKey.Point()
	if err != nil {
		return nil, fmt.Errorf("%w: tssPubKey: %v", sign.ErrInvalidRequest, err)
	}
	commitments, err := factor.PointsFromJSON(body.TSSCommits)
	if err != nil {
		return nil, fmt.Errorf("%w: tssCommits: %v", sign.ErrInvalidRequest, err)
	}
	if len(commitments) > 0 && !commitments[0].Equal(pub) {
		return nil, fmt.Errorf("%w: tssPubKey does not match tssCommits", sign.ErrInvalidRequest)
	}
	tag := body.TSSTag
	if tag == "" {
		tag = factor.DefaultTag
	}
	return &signRequest{
		Request: sign.Request{
			Message:    msg,
			Prehashed:  body.Prehashed,
			VerifierID: body.VerifierID,
			Tag:        tag,
			Nonce:      body.TSSNonce,
			PublicKey:  pub,
			Signatures: body.Signatures,
		},
		commitments: commitments,
	}, nil
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, sign.ErrMissingAuthentication):
		return http.StatusUnauthorized, CodeMissingAuthentication
	case errors.Is(err, sign.ErrInvalidRequest),
		errors.Is(err, polynomial.ErrInvalidIndexSet):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ecies.ErrDecryptionFailed):
		return http.StatusUnprocessableEntity, CodeDecryptionFailed
	case errors.Is(err, share.ErrCommitmentMismatch),
		errors.Is(err, share.ErrNoValidShareCombination):
		return http.StatusUnprocessableEntity, CodeShareMismatch
	case errors.Is(err, sign.ErrSessionSetupTimeout):
		return http.StatusGatewayTimeout, CodeSessionSetupTimeout
	case errors.Is(err, sign.ErrInvalidSignature):
		return http.StatusBadGateway, CodeInvalidSignature
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *Handler) writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	status, code := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	log.Warn().Err(err).Int("status", status).Str("code", code).Msg("request failed")
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
