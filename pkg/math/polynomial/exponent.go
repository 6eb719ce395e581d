package polynomial

import (
	"errors"

	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

// Exponent represents a polynomial whose coefficients are points on an elliptic curve.
//
// It is the public commitment [A₀, A₁, …] to a sharing polynomial, with Aᵢ = aᵢ•G.
type Exponent struct {
	group        curve.Curve
	coefficients []curve.Point
}

// NewPolynomialExponent generates an Exponent polynomial F(X) = [secret + a₁•X + … + aₜ•Xᵗ]•G,
// with coefficients in G, and degree t.
func NewPolynomialExponent(polynomial *Polynomial) *Exponent {
	p := &Exponent{
		group:        polynomial.group,
		coefficients: make([]curve.Point, len(polynomial.coefficients)),
	}
	for i, c := range polynomial.coefficients {
		p.coefficients[i] = c.ActOnBase()
	}
	return p
}

// NewExponent returns the commitment with the given coefficients, A₀ first.
// At least two points are required.
func NewExponent(group curve.Curve, coefficients []curve.Point) (*Exponent, error) {
	if len(coefficients) < 2 {
		return nil, errors.New("polynomial: commitment needs at least two points")
	}
	p := &Exponent{
		group:        group,
		coefficients: make([]curve.Point, len(coefficients)),
	}
	for i, c := range coefficients {
		if c == nil {
			return nil, errors.New("polynomial: nil commitment point")
		}
		p.coefficients[i] = group.NewPoint().Set(c)
	}
	return p, nil
}

// Evaluate returns F(index) using Horner's method.
func (p *Exponent) Evaluate(index curve.Scalar) curve.Point {
	last := len(p.coefficients) - 1
	result := p.group.NewPoint().Set(p.coefficients[last])
	for i := last - 1; i >= 0; i-- {
		// Bₙ₋₁ = [x]Bₙ  + Aₙ₋₁
		result = index.Act(result).Add(p.coefficients[i])
	}
	return result
}

// evaluateIterative computes A₀ + index•A₁ by repeated point addition.
// It is only defined for degree 1 commitments.
func (p *Exponent) evaluateIterative(index party.ID) curve.Point {
	result := p.group.NewPoint().Set(p.coefficients[0])
	for j := party.ID(0); j < index; j++ {
		result = result.Add(p.coefficients[1])
	}
	return result
}

// Verify returns true if share•G == F(index).
func (p *Exponent) Verify(index party.ID, share curve.Scalar) bool {
	if index == 0 || share == nil {
		return false
	}
	expected := p.Evaluate(index.Scalar(p.group))
	if !share.ActOnBase().Equal(expected) {
		return false
	}
	if p.Degree() == 1 && !share.ActOnBase().Equal(p.evaluateIterative(index)) {
		return false
	}
	return true
}

func (p *Exponent) Degree() int {
	return len(p.coefficients) - 1
}

// Constant returns the constant coefficient of the polynomial 'in the exponent'.
func (p *Exponent) Constant() curve.Point {
	return p.group.NewPoint().Set(p.coefficients[0])
}

// Coefficients returns a copy of the committed points, A₀ first.
func (p *Exponent) Coefficients() []curve.Point {
	out := make([]curve.Point, len(p.coefficients))
	for i, c := range p.coefficients {
		out[i] = p.group.NewPoint().Set(c)
	}
	return out
}

func (p *Exponent) Equal(other *Exponent) bool {
	if len(p.coefficients) != len(other.coefficients) {
		return false
	}
	for i := range p.coefficients {
		if !p.coefficients[i].Equal(other.coefficients[i]) {
			return false
		}
	}
	return true
}
