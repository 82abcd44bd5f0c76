package tracking

import (
	"fmt"

	"github.com/ignite/site-tracking/internal/pkg/logger"
)

var tlog = logger.Component("tracking")

// Outcome is the internal result of one best-effort step.
type Outcome struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Cause string `json:"cause,omitempty"`
	Err   error  `json:"-"`
}

// attempt runs fn, converting errors and panics into a failed Outcome.
// Failures are logged here so callers only decide what to do next.
func attempt(step string, fn func() error) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(step, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		return failed(step, err)
	}
	return Outcome{Step: step, OK: true}
}

func failed(step string, err error) Outcome {
	tlog.Warn("tracking step failed", "step", step, "err", err)
	return Outcome{Step: step, Cause: err.Error(), Err: err}
}
