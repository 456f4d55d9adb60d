// Package probe implements one-shot readiness checks per protocol family.
// Each prober prefers the richest available mechanism and degrades towards a
// raw TCP connect when tooling is missing on the host.
package probe

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/go-go-golems/waitfor/pkg/target"
)

// Prober performs exactly one readiness attempt against its target.
type Prober interface {
	ProbeOnce(ctx context.Context, connectTimeout time.Duration) Outcome
}

// ForTarget returns the prober matching the target's protocol.
func ForTarget(t target.Target, caps *Capabilities) Prober {
	switch t.Protocol {
	case target.TCP:
		return &TCPProber{Target: t, Caps: caps}
	case target.Postgres:
		return &PostgresProber{Target: t, Caps: caps}
	default:
		return &HTTPProber{Target: t, Caps: caps}
	}
}

// retryReason maps a transport error to the short reason string attached to
// a retryable outcome.
func retryReason(err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return "could not resolve host"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return "access denied"
	case isTimeout(err):
		return "connection timed out"
	default:
		return "transport error: " + err.Error()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
