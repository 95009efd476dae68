package application

import (
	"time"

	"votingdao/contexts/governance/voting-dao/ports"
)

// ResolveNow picks the caller-supplied instant, falling back to clock and then
// wall time. The result is UTC at whole-second precision so one call never
// sees a proposal flip between active and expired.
func ResolveNow(explicit time.Time, clock ports.Clock) time.Time {
	now := explicit
	if now.IsZero() && clock != nil {
		now = clock.Now()
	}
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Truncate(time.Second)
}
