package watchdog

import (
	"fmt"
	"strings"

	"github.com/Cortado-Group/website-watchdog/internal/probe"
	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

// Classify reduces a raw probe outcome to a check row for the target. It is
// pure: no I/O, and every outcome maps to exactly one status.
//
// Order matters: timeout and transport failures are decided before the
// response is inspected, status code before content. Status and content
// expectations are ANDed; either failing yields failure.
func Classify(t *storage.Target, out probe.Outcome) storage.Check {
	check := storage.Check{TargetID: t.ID}

	switch out.Kind {
	case probe.TimedOut:
		check.Status = storage.StatusTimeout
		msg := fmt.Sprintf("Timeout after %ds", t.Timeout)
		check.ErrorMessage = &msg

	case probe.TransportError:
		check.Status = storage.StatusError
		msg := out.Err.Error()
		check.ErrorMessage = &msg

	default: // probe.Completed
		code := out.StatusCode
		elapsed := out.Elapsed
		check.StatusCode = &code
		check.ResponseTime = &elapsed

		switch {
		case out.StatusCode != t.ExpectedStatus:
			check.Status = storage.StatusFailure
			msg := fmt.Sprintf("Expected %d, got %d", t.ExpectedStatus, out.StatusCode)
			check.ErrorMessage = &msg
		case t.Contains != "" && !strings.Contains(out.Body, t.Contains):
			check.Status = storage.StatusFailure
			msg := fmt.Sprintf("Expected content '%s' not found", t.Contains)
			check.ErrorMessage = &msg
		default:
			check.Status = storage.StatusSuccess
		}
	}

	return check
}
