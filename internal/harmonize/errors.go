package harmonize

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoVariables is returned when neither extensive nor intensive
// variables were requested.
var ErrNoVariables = eris.New("harmonize: no extensive or intensive variables to interpolate")

// MissingCRSError reports an input collection with no coordinate
// reference system.
type MissingCRSError struct {
	// Index is the position of the offending collection in the input list.
	Index int
}

func (e *MissingCRSError) Error() string {
	return fmt.Sprintf("harmonize: input collection %d has no coordinate reference system", e.Index)
}

// CRSMismatchError reports an input collection whose coordinate reference
// system differs from the first collection's.
type CRSMismatchError struct {
	Index int
	Got   string
	Want  string
}

func (e *CRSMismatchError) Error() string {
	return fmt.Sprintf("harmonize: input collection %d has CRS %q, want %q (all inputs must share one CRS)",
		e.Index, e.Got, e.Want)
}

// UnsupportedMethodError reports a weighting method that is reserved but
// not implemented, or otherwise unusable with the configured primitives.
type UnsupportedMethodError struct {
	Method Method
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("harmonize: weighting method %q is not supported", e.Method)
}
