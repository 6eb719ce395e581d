// Package localnet runs the custodial servers and the multiparty signing engine in process.
//
// The network acts as a trusted dealer: it sees the keys it deals and re-shares.
// It is used by tests and by the demo command.
package localnet

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/pool"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

var (
	// ErrOffline is returned when a server that is offline is asked to take part.
	ErrOffline = errors.New("localnet: server offline")
	// ErrUnknownKey is returned when a server holds no share for the requested key and nonce.
	ErrUnknownKey = errors.New("localnet: unknown key")
	// ErrUnauthorized is returned when a request carries no authentication signatures.
	ErrUnauthorized = errors.New("localnet: missing authentication signatures")
)

// keyShare is a server's share of the server value f(1) of a key.
type keyShare struct {
	nonce uint32
	value curve.Scalar
}

// Server is a single custodial server.
type Server struct {
	ID party.ID

	mtx      sync.Mutex
	keys     map[string]keyShare
	sessions map[string]struct{}
	offline  bool
}

func newServer(id party.ID) *Server {
	return &Server{
		ID:       id,
		keys:     make(map[string]keyShare),
		sessions: make(map[string]struct{}),
	}
}

func keyName(verifierID, tag string) string {
	return verifierID + "\x00" + tag
}

func (s *Server) share(verifierID, tag string, nonce uint32) (curve.Scalar, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.offline {
		return nil, fmt.Errorf("%w: %d", ErrOffline, s.ID)
	}
	k, ok := s.keys[keyName(verifierID, tag)]
	if !ok || k.nonce != nonce {
		return nil, fmt.Errorf("%w: server %d, tag %q, nonce %d", ErrUnknownKey, s.ID, tag, nonce)
	}
	return k.value, nil
}

func (s *Server) store(verifierID, tag string, nonce uint32, value curve.Scalar) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.keys[keyName(verifierID, tag)] = keyShare{nonce: nonce, value: value}
}

func (s *Server) online() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.offline {
		return fmt.Errorf("%w: %d", ErrOffline, s.ID)
	}
	return nil
}

func (s *Server) open(session string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sessions[session] = struct{}{}
}

func (s *Server) close(session string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.sessions, session)
}

// Sessions returns the number of signing sessions the server holds resources for.
func (s *Server) Sessions() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.sessions)
}

// Network is a set of custodial servers indexed 1, …, n.
type Network struct {
	Group curve.Curve
	// Threshold is the number of servers needed to recover a server value.
	Threshold int
	Log       zerolog.Logger

	rand    io.Reader
	servers party.IDSlice
	nodes   map[party.ID]*Server
}

// New returns a network of n servers with threshold ⌈n/2⌉.
// rand is wrapped so that it may be used concurrently.
func New(n int, rand io.Reader, log zerolog.Logger) (*Network, error) {
	if n <= 0 {
		return nil, fmt.Errorf("localnet: invalid number of servers %d", n)
	}
	servers := party.Range(1, party.ID(n))
	nodes := make(map[party.ID]*Server, n)
	for _, id := range servers {
		nodes[id] = newServer(id)
	}
	return &Network{
		Group:     curve.Secp256k1{},
		Threshold: (n + 1) / 2,
		Log:       log,
		rand:      pool.NewLockedReader(rand),
		servers:   servers,
		nodes:     nodes,
	}, nil
}

// Servers returns the indexes of all servers.
func (n *Network) Servers() party.IDSlice {
	return n.servers.Copy()
}

// Server returns the server with the given index, or nil.
func (n *Network) Server(id party.ID) *Server {
	return n.nodes[id]
}

// SetOffline makes a server refuse every request, or serve them again.
func (n *Network) SetOffline(id party.ID, offline bool) {
	if s, ok := n.nodes[id]; ok {
		s.mtx.Lock()
		s.offline = offline
		s.mtx.Unlock()
	}
}

// deal shares value, the server value of a key, among all servers.
func (n *Network) deal(verifierID, tag string, nonce uint32, value curve.Scalar) {
	g := polynomial.NewPolynomial(n.Group, n.Threshold-1, value, n.rand)
	for _, id := range n.servers {
		n.nodes[id].store(verifierID, tag, nonce, g.Evaluate(id.Scalar(n.Group)))
	}
}

// sharing deals a fresh degree 1 sharing of x, with f(0) = x, to the servers and returns f.
func (n *Network) sharing(verifierID, tag string, nonce uint32, x curve.Scalar) *polynomial.Polynomial {
	f := polynomial.NewPolynomial(n.Group, 1, x, n.rand)
	n.deal(verifierID, tag, nonce, f.Evaluate(share.ServerVirtualIndex.Scalar(n.Group)))
	return f
}

// encrypt returns the hierarchical encryption of f(index) to pub.
func (n *Network) encrypt(f *polynomial.Polynomial, pub curve.Point, index party.ID) (*factor.Encryption, error) {
	s := &share.Share{Index: index, Value: f.Evaluate(index.Scalar(n.Group))}
	return share.EncryptHierarchical(n.rand, pub, s, len(n.servers), n.Threshold)
}

// NewKey deals a new tss key for tag, and authorizes a single factor pub at index.
func (n *Network) NewKey(verifierID, tag string, pub curve.Point, index party.ID) (*factor.TagData, error) {
	if index == 0 || index == share.ServerVirtualIndex {
		return nil, fmt.Errorf("localnet: invalid factor index %d", index)
	}
	x := sample.Scalar(n.rand, n.Group)
	f := n.sharing(verifierID, tag, 0, x)

	enc, err := n.encrypt(f, pub, index)
	if err != nil {
		return nil, err
	}
	data := &factor.TagData{
		Nonce:       0,
		Commitments: polynomial.NewPolynomialExponent(f).Coefficients(),
		Factors: &factor.Set{
			Pubs: []curve.Point{pub},
			Encs: map[string]*factor.Encryption{factor.ID(pub): enc},
		},
	}
	n.Log.Info().
		Str("tag", tag).
		Str("factor", factor.ID(pub)).
		Uint32("tss_index", uint32(index)).
		Msg("dealt key")
	return data, nil
}

// serverValue recovers the server value of a key from the given servers' shares.
func (n *Network) serverValue(verifierID, tag string, nonce uint32, servers []party.ID) (curve.Scalar, error) {
	if len(servers) < n.Threshold {
		return nil, fmt.Errorf("localnet: %d servers selected, %d needed", len(servers), n.Threshold)
	}
	points := make(map[party.ID]curve.Scalar, len(servers))
	for _, id := range servers {
		node, ok := n.nodes[id]
		if !ok {
			return nil, fmt.Errorf("localnet: no server %d", id)
		}
		value, err := node.share(verifierID, tag, nonce)
		if err != nil {
			return nil, err
		}
		points[id] = value
	}
	return polynomial.Interpolate(n.Group, points, 0)
}
