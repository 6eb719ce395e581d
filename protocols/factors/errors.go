package factors

import "errors"

var (
	// ErrInvalidTSSIndex is returned when a new factor is given an index other than 2 or 3.
	ErrInvalidTSSIndex = errors.New("factors: tss index must be 2 or 3")
	// ErrIndexMismatch is returned when a copied factor's index differs from the input factor's.
	ErrIndexMismatch = errors.New("factors: tss index does not match the input factor's index")
	// ErrFactorNotFound is returned when a factor is not part of the set.
	ErrFactorNotFound = errors.New("factors: factor not found")
	// ErrAmbiguousFactor is returned when a factor appears more than once, which indicates corrupted metadata.
	ErrAmbiguousFactor = errors.New("factors: factor appears more than once")
	// ErrLastFactor is returned when deleting the only remaining factor.
	ErrLastFactor = errors.New("factors: cannot delete the last factor")
	// ErrInconsistentReshare is returned when a re-share changes the tss public key or does not cover every factor.
	ErrInconsistentReshare = errors.New("factors: inconsistent re-share result")
)
