package sign

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/dkls"
	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

// HashAlgorithm is the hash applied to messages that are not prehashed.
const HashAlgorithm = "keccak256"

// State is the progress of a signing session. StateFailed is only observed
// when the engine could not be connected; once connected, a session always
// ends in StateCleanedUp and a failure carries its state in Error.
type State int

const (
	StateCreated State = iota
	StatePrecomputeStarted
	StateReady
	StateSigned
	StateCleanedUp
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePrecomputeStarted:
		return "precompute started"
	case StateReady:
		return "ready"
	case StateSigned:
		return "signed"
	case StateCleanedUp:
		return "cleaned up"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the static configuration of a Signer.
type Config struct {
	// Servers are the DKG indexes of the participating signing servers.
	Servers []party.ID
	// Version is the encoding of session identities.
	Version Version
}

// DefaultConfig is three servers and a client, four parties in total.
func DefaultConfig() Config {
	return Config{
		Servers: []party.ID{1, 2, 3},
		Version: VersionStructured,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Servers) == 0 || !party.IDSlice(c.Servers).Valid() {
		return fmt.Errorf("sign: servers %v must be sorted, distinct and non zero", party.IDSlice(c.Servers))
	}
	if c.Version != VersionStructured && c.Version != VersionLegacy {
		return fmt.Errorf("sign: unknown identity version %d", c.Version)
	}
	return nil
}

// Request is a single signing request.
type Request struct {
	// Message is signed after hashing with Keccak-256, unless Prehashed is set.
	Message   []byte
	Prehashed bool

	VerifierID string
	Tag        string
	// Nonce is the current re-share nonce of Tag.
	Nonce     uint32
	PublicKey curve.Point
	Share     *share.Share
	// Signatures authenticate the caller to the servers.
	Signatures []string
}

// Digest returns the 32 byte hash that is signed for the request.
func (r *Request) Digest() ([]byte, error) {
	if !r.Prehashed {
		return ecdsa.Keccak256(r.Message), nil
	}
	if len(r.Message) != ecdsa.HashLength {
		return nil, fmt.Errorf("%w: prehashed message must be %d bytes", ErrInvalidRequest, ecdsa.HashLength)
	}
	return r.Message, nil
}

func (r *Request) validate() error {
	if len(r.Signatures) == 0 {
		return ErrMissingAuthentication
	}
	if r.Share == nil || r.Share.Value == nil {
		return fmt.Errorf("%w: missing share", ErrInvalidRequest)
	}
	if r.PublicKey == nil || r.PublicKey.IsIdentity() {
		return fmt.Errorf("%w: missing tss public key", ErrInvalidRequest)
	}
	return nil
}

// Signer runs signing sessions against an Engine.
type Signer struct {
	Engine Engine
	Config Config
	Log    zerolog.Logger
	// Rand and Now are used for session nonces.
	Rand io.Reader
	Now  func() time.Time
}

// NewSigner returns a Signer with crypto/rand and the system clock.
func NewSigner(engine Engine, config Config, log zerolog.Logger) (*Signer, error) {
	if engine == nil {
		return nil, errors.New("sign: nil engine")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Signer{
		Engine: engine,
		Config: config,
		Log:    log,
		Rand:   rand.Reader,
		Now:    time.Now,
	}, nil
}

// Sign runs a full session for req and returns a signature that verifies against req.PublicKey.
func (s *Signer) Sign(ctx context.Context, req Request) (*ecdsa.Signature, error) {
	session, err := s.NewSession(req)
	if err != nil {
		return nil, err
	}
	return session.Run(ctx)
}

// Session is a single signing session. It is not safe for concurrent use.
type Session struct {
	ID       string
	Identity *Identity

	engine  Engine
	params  Params
	digest  []byte
	pub     curve.Point
	coeffs  map[string]string
	request Request
	state   State
	log     zerolog.Logger
}

// NewSession prepares a session for req: its identity, party layout and coefficients.
func (s *Signer) NewSession(req Request) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, Error{State: StateCreated, Err: err}
	}
	digest, err := req.Digest()
	if err != nil {
		return nil, Error{State: StateCreated, Err: err}
	}

	tag := req.Tag
	if tag == "" {
		tag = "default"
	}
	identity, err := NewIdentity(s.Rand, s.Now(), req.VerifierID, tag, req.Nonce)
	if err != nil {
		return nil, Error{State: StateCreated, Err: err}
	}
	id, err := identity.Encode(s.Config.Version)
	if err != nil {
		return nil, Error{State: StateCreated, Err: err}
	}

	servers := party.NewIDSlice(s.Config.Servers)
	group := req.Share.Value.Curve()
	denormalized, err := dkls.Denormalize(req.Share, servers)
	if err != nil {
		return nil, Error{State: StateCreated, Err: err}
	}
	coeffs, err := dkls.ServerCoefficients(group, servers, req.Share.Index)
	if err != nil {
		return nil, Error{State: StateCreated, Err: err}
	}

	n := dkls.Parties(servers)
	parties := make([]int, n)
	for i := range parties {
		parties[i] = i
	}
	x, y := curve.Coordinates(req.PublicKey)

	return &Session{
		ID:       id,
		Identity: identity,
		engine:   s.Engine,
		params: Params{
			Session:       id,
			ClientIndex:   dkls.ClientPosition(servers),
			Parties:       parties,
			ServerIndexes: servers,
			Share:         base64.StdEncoding.EncodeToString(curve.ScalarBytes(denormalized)),
			PublicKey:     base64.StdEncoding.EncodeToString(append(x[:], y[:]...)),
		},
		digest:  digest,
		pub:     req.PublicKey,
		coeffs:  coeffs,
		request: req,
		state:   StateCreated,
		log: s.Log.With().
			Str("tag", tag).
			Uint32("tss_nonce", req.Nonce).
			Uint32("tss_index", uint32(req.Share.Index)).
			Int("parties", n).
			Logger(),
	}, nil
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.state
}

// Params returns what is passed to the engine on Connect.
func (s *Session) Params() Params {
	return s.params
}

func (s *Session) transition(state State) {
	s.log.Debug().Stringer("from", s.state).Stringer("to", state).Msg("session state")
	s.state = state
}

func (s *Session) fail(err error) error {
	failed := Error{State: s.state, Err: err}
	s.log.Error().Err(err).Stringer("state", s.state).Msg("signing session failed")
	s.state = StateFailed
	return failed
}

// Run executes the session. Once the engine is connected, cleanup always runs,
// and errors from cleanup are only logged.
func (s *Session) Run(ctx context.Context) (*ecdsa.Signature, error) {
	if s.state != StateCreated {
		return nil, fmt.Errorf("sign: session already run, state %s", s.state)
	}
	client, err := s.engine.Connect(ctx, s.params)
	if err != nil {
		return nil, s.fail(fmt.Errorf("connect: %w", err))
	}

	sig, err := s.run(ctx, client)
	if err != nil {
		err = s.fail(err)
	}

	// cleanup must run even if ctx is done
	if cleanupErr := client.Cleanup(context.WithoutCancel(ctx), s.request.Signatures); cleanupErr != nil {
		s.log.Warn().Err(cleanupErr).Msg("cleanup failed")
	}
	s.transition(StateCleanedUp)
	if err != nil {
		return nil, err
	}
	s.log.Info().Msg("signed")
	return sig, nil
}

func (s *Session) run(ctx context.Context, client Client) (*ecdsa.Signature, error) {
	signatures := s.request.Signatures

	s.transition(StatePrecomputeStarted)
	if err := client.Precompute(ctx, PrecomputeParams{Signatures: signatures, ServerCoeffs: s.coeffs}); err != nil {
		return nil, fmt.Errorf("%w: precompute: %w", ErrSessionSetupTimeout, err)
	}
	if err := client.Ready(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionSetupTimeout, err)
	}
	s.transition(StateReady)

	sig, err := client.Sign(ctx, SignParams{
		MsgHash:       base64.StdEncoding.EncodeToString(s.digest),
		HashAlgorithm: HashAlgorithm,
		Signatures:    signatures,
	})
	if err != nil {
		return nil, fmt.Errorf("engine sign: %w", err)
	}
	if sig == nil {
		return nil, errors.New("engine sign: no signature")
	}
	s.transition(StateSigned)

	if !sig.Verify(s.pub, s.digest) {
		return nil, ErrInvalidSignature
	}
	return sig, nil
}
