package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/target"
	"github.com/rs/zerolog/log"
)

// TCPProber checks that a plain TCP connection to host:port can be
// established. Netcat is preferred when present; otherwise it dials
// directly with the same timeout semantics.
type TCPProber struct {
	Target target.Target
	Caps   *Capabilities
}

func (p *TCPProber) ProbeOnce(ctx context.Context, connectTimeout time.Duration) Outcome {
	if p.Target.Host == "" || p.Target.Port <= 0 {
		return Abort(status.MissingHostPort, "missing host or port")
	}
	if p.Caps.Has(CapNetcat) {
		return p.probeNetcat(ctx, connectTimeout)
	}
	return p.probeDial(ctx, connectTimeout)
}

func (p *TCPProber) probeNetcat(ctx context.Context, connectTimeout time.Duration) Outcome {
	secs := int(connectTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}

	// nc enforces its own -w timeout; the context bound is a safety margin.
	cctx, cancel := context.WithTimeout(ctx, connectTimeout+time.Second)
	defer cancel()

	host := strings.Trim(p.Target.Host, "[]")
	err := p.Caps.Run(cctx, p.Caps.Path(CapNetcat), "-z", "-w", strconv.Itoa(secs), host, strconv.Itoa(p.Target.Port))
	if err == nil {
		return Succeeded()
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return Abort(status.Interrupted, "interrupted")
	}
	log.Debug().Str("target", p.Target.Raw).Err(err).Msg("netcat probe failed")
	return Retry("connection failed")
}

func (p *TCPProber) probeDial(ctx context.Context, connectTimeout time.Duration) Outcome {
	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.Target.Addr())
	if err == nil {
		_ = conn.Close()
		return Succeeded()
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return Abort(status.Interrupted, "interrupted")
	}
	return Retry(retryReason(err))
}
