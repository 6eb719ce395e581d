package polynomial

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

var (
	// ErrInvalidIndexSet is returned when an interpolation domain is empty, contains duplicates or 0,
	// or does not contain the requested index.
	ErrInvalidIndexSet = errors.New("polynomial: invalid index set")
	// ErrDegenerateInterpolation is returned when a coefficient would require dividing by zero.
	ErrDegenerateInterpolation = errors.New("polynomial: degenerate interpolation")
)

// LagrangeAt returns the Lagrange basis coefficient ℓⱼ(target) over the interpolation domain.
//
//	           (target - x₀) ⋅⋅⋅ (target - xₖ)
//	ℓⱼ(t) = ------------------------------------   (xᵢ ≠ xⱼ)
//	              (xⱼ - x₀) ⋅⋅⋅ (xⱼ - xₖ)
//
// The target must not be one of the other points of the domain.
func LagrangeAt(group curve.Curve, interpolationDomain []party.ID, j, target party.ID) (curve.Scalar, error) {
	if err := validateDomain(interpolationDomain); err != nil {
		return nil, err
	}
	found := false
	for _, id := range interpolationDomain {
		if id == j {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: index %d not in %v", ErrInvalidIndexSet, j, party.IDSlice(interpolationDomain))
	}
	return lagrange(group, interpolationDomain, j, target)
}

// Lagrange returns the Lagrange coefficients at 0 for all parties in the interpolation domain.
func Lagrange(group curve.Curve, interpolationDomain []party.ID) (map[party.ID]curve.Scalar, error) {
	return LagrangeFor(group, interpolationDomain, interpolationDomain...)
}

// LagrangeFor returns the Lagrange coefficients at 0 for all parties in the given subset.
func LagrangeFor(group curve.Curve, interpolationDomain []party.ID, subset ...party.ID) (map[party.ID]curve.Scalar, error) {
	coefficients := make(map[party.ID]curve.Scalar, len(subset))
	for _, j := range subset {
		lJ, err := LagrangeAt(group, interpolationDomain, j, 0)
		if err != nil {
			return nil, err
		}
		coefficients[j] = lJ
	}
	return coefficients, nil
}

// Interpolate returns f(target) for the polynomial of degree len(points)-1
// passing through the given evaluations.
func Interpolate(group curve.Curve, points map[party.ID]curve.Scalar, target party.ID) (curve.Scalar, error) {
	domain := make([]party.ID, 0, len(points))
	for id := range points {
		domain = append(domain, id)
	}
	domain = party.NewIDSlice(domain)

	result := group.NewScalar()
	for _, id := range domain {
		lJ, err := LagrangeAt(group, domain, id, target)
		if err != nil {
			return nil, err
		}
		result.Add(lJ.Mul(points[id]))
	}
	return result, nil
}

func validateDomain(interpolationDomain []party.ID) error {
	if len(interpolationDomain) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidIndexSet)
	}
	seen := make(map[party.ID]struct{}, len(interpolationDomain))
	for _, id := range interpolationDomain {
		if id == 0 {
			return fmt.Errorf("%w: index 0 is reserved", ErrInvalidIndexSet)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate index %d", ErrInvalidIndexSet, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func lagrange(group curve.Curve, interpolationDomain []party.ID, j, target party.ID) (curve.Scalar, error) {
	xJ := j.Scalar(group)
	t := target.Scalar(group)
	numerator := curve.FromUint32(group, 1)
	denominator := curve.FromUint32(group, 1)
	for _, id := range interpolationDomain {
		if id == j {
			continue
		}
		if id == target {
			return nil, fmt.Errorf("%w: target %d coincides with index %d", ErrDegenerateInterpolation, target, id)
		}
		xI := id.Scalar(group)
		// numerator *= t - xᵢ
		numerator.Mul(group.NewScalar().Set(t).Sub(xI))
		// denominator *= xⱼ - xᵢ
		denominator.Mul(group.NewScalar().Set(xJ).Sub(xI))
	}
	if denominator.IsZero() {
		return nil, ErrDegenerateInterpolation
	}
	return numerator.Mul(denominator.Invert()), nil
}
