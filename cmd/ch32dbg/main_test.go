package main

import (
	"errors"
	"testing"

	"ch32dbg"
)

// TestDispatchMapsExitCodes exercises section 6's exit code table: an
// unimplemented capability always maps to -1 regardless of which flag
// asked for it, and everything else falls through to the caller's own
// flag-specific onFailure code.
func TestDispatchMapsExitCodes(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		onFailure int
		want      int
	}{
		{"success", nil, -5, 0},
		{"unimplemented overrides onFailure", &ch32dbg.Error{Kind: ch32dbg.ErrCommandUnimplemented, Err: errors.New("x")}, -11, -1},
		{"generic error uses onFailure", &ch32dbg.Error{Kind: ch32dbg.ErrFlashBusyTimeout, Err: errors.New("timeout")}, -5, -5},
		{"unwrapped error uses onFailure", errors.New("boom"), -11, -11},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := dispatch(c.err, c.onFailure); got != c.want {
				t.Errorf("dispatch(%v, %d) = %d, want %d", c.err, c.onFailure, got, c.want)
			}
		})
	}
}
