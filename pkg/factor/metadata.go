package factor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
)

// DefaultTag is the tag of the first key of an account.
const DefaultTag = "default"

// TagData is the public state of the sharing of one tss key.
type TagData struct {
	// Nonce is incremented on every re-share.
	Nonce uint32
	// Commitments are the points A₀, A₁, … of the current sharing polynomial.
	// A₀ is the tss public key.
	Commitments []curve.Point
	Factors     *Set
}

// PublicKey returns the tss public key A₀.
func (t *TagData) PublicKey() (curve.Point, error) {
	if len(t.Commitments) == 0 {
		return nil, errors.New("factor: no commitments")
	}
	return t.Commitments[0], nil
}

// Commitment returns the commitments as a polynomial in the exponent.
func (t *TagData) Commitment() (*polynomial.Exponent, error) {
	return polynomial.NewExponent(curve.Secp256k1{}, t.Commitments)
}

// Validate checks the commitments and the factor set.
func (t *TagData) Validate() error {
	if _, err := t.Commitment(); err != nil {
		return err
	}
	if t.Factors == nil {
		return errors.New("factor: missing factor set")
	}
	return t.Factors.Validate()
}

// Clone returns a deep copy of t.
func (t *TagData) Clone() *TagData {
	out := &TagData{
		Nonce:       t.Nonce,
		Commitments: make([]curve.Point, len(t.Commitments)),
	}
	for i, c := range t.Commitments {
		out.Commitments[i] = c.Curve().NewPoint().Set(c)
	}
	if t.Factors != nil {
		out.Factors = t.Factors.Clone()
	}
	return out
}

// Metadata is the public state of an account, as stored under the account key.
type Metadata struct {
	VerifierID string              `json:"verifierId" cbor:"1,keyasint"`
	Tag        string              `json:"tssTag" cbor:"2,keyasint"`
	Tags       map[string]*TagData `json:"tags" cbor:"3,keyasint"`
}

// Current returns the data of the active tag.
func (m *Metadata) Current() (*TagData, error) {
	data, ok := m.Tags[m.Tag]
	if !ok {
		return nil, fmt.Errorf("factor: no data for tag %q", m.Tag)
	}
	return data, nil
}

type tagDataWire struct {
	Nonce       uint32                 `json:"tssNonce" cbor:"1,keyasint"`
	Commitments []curve.JSONPoint      `json:"tssCommits" cbor:"2,keyasint"`
	Pubs        []curve.JSONPoint      `json:"factorPubs" cbor:"3,keyasint"`
	Encs        map[string]*Encryption `json:"factorEncs" cbor:"4,keyasint"`
}

func (t *TagData) toWire() tagDataWire {
	w := tagDataWire{
		Nonce:       t.Nonce,
		Commitments: PointsToJSON(t.Commitments),
		Encs:        map[string]*Encryption{},
	}
	if t.Factors != nil {
		w.Pubs = PointsToJSON(t.Factors.Pubs)
		w.Encs = t.Factors.Encs
	}
	return w
}

func (t *TagData) fromWire(w tagDataWire) error {
	commitments, err := PointsFromJSON(w.Commitments)
	if err != nil {
		return fmt.Errorf("factor: tss commitments: %w", err)
	}
	pubs, err := PointsFromJSON(w.Pubs)
	if err != nil {
		return fmt.Errorf("factor: factor pubs: %w", err)
	}
	if w.Encs == nil {
		w.Encs = map[string]*Encryption{}
	}
	*t = TagData{
		Nonce:       w.Nonce,
		Commitments: commitments,
		Factors:     &Set{Pubs: pubs, Encs: w.Encs},
	}
	return nil
}

func (t *TagData) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.toWire())
}

func (t *TagData) UnmarshalJSON(data []byte) error {
	var w tagDataWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return t.fromWire(w)
}

func (t *TagData) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.toWire())
}

func (t *TagData) UnmarshalCBOR(data []byte) error {
	var w tagDataWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	return t.fromWire(w)
}

// PointsToJSON returns the wire form of points.
func PointsToJSON(points []curve.Point) []curve.JSONPoint {
	out := make([]curve.JSONPoint, len(points))
	for i, p := range points {
		out[i] = curve.NewJSONPoint(p)
	}
	return out
}

// PointsFromJSON parses the wire form of points.
func PointsFromJSON(points []curve.JSONPoint) ([]curve.Point, error) {
	out := make([]curve.Point, len(points))
	for i, p := range points {
		point, err := p.Point()
		if err != nil {
			return nil, err
		}
		out[i] = point
	}
	return out, nil
}
