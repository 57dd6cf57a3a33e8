package marketdata

import (
	"errors"
	"fmt"
)

// EntitlementError is a 402/403 from the provider: the API token lacks access
// to the requested data. Retrying cannot help, and callers short-circuit any
// retry loop when they see one.
type EntitlementError struct {
	Status   int
	Endpoint string
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("provider entitlement failure (%d) on %s", e.Status, e.Endpoint)
}

// IsEntitlement reports whether err is an entitlement failure.
func IsEntitlement(err error) bool {
	var ee *EntitlementError
	return errors.As(err, &ee)
}

// ErrNoData is returned when the provider answers with an empty or "no data"
// payload for the requested symbol.
var ErrNoData = errors.New("marketdata: no data for symbol")
