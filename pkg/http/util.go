package http

import (
	"time"

	xutil "FuelPhases/pkg/util"
)

// ParseDate parses a YYYY-MM-DD date. Returns (t, true) if it worked.
func ParseDate(s string) (time.Time, bool) { return xutil.ParseDate(s) }
