package probe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/target"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// PostgresProber checks that a Postgres server is accepting connections.
// Preference order: the pg_isready utility, a native wire-protocol
// handshake, then a plain TCP connect. The configured connect timeout
// applies on every branch.
type PostgresProber struct {
	Target target.Target
	Caps   *Capabilities
}

func (p *PostgresProber) ProbeOnce(ctx context.Context, connectTimeout time.Duration) Outcome {
	if p.Caps.Has(CapPGIsReady) {
		return p.probeUtility(ctx, connectTimeout)
	}
	if p.Caps.Has(CapPGConn) {
		return p.probeHandshake(ctx, connectTimeout)
	}
	fallback := &TCPProber{Target: p.Target, Caps: p.Caps}
	return fallback.ProbeOnce(ctx, connectTimeout)
}

func (p *PostgresProber) probeUtility(ctx context.Context, connectTimeout time.Duration) Outcome {
	secs := int(connectTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}

	args := []string{
		"-h", p.Target.Host,
		"-p", strconv.Itoa(p.Target.Port),
		"-t", strconv.Itoa(secs),
	}
	if p.Target.User != "" {
		args = append(args, "-U", p.Target.User)
	}

	// pg_isready applies -t itself; the context bound is a safety margin.
	cctx, cancel := context.WithTimeout(ctx, connectTimeout+time.Second)
	defer cancel()

	err := p.Caps.Run(cctx, p.Caps.Path(CapPGIsReady), args...)
	if err == nil {
		return Succeeded()
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return Abort(status.Interrupted, "interrupted")
	}
	log.Debug().Str("target", p.Target.Raw).Err(err).Msg("pg_isready reported not ready")
	return Retry("server not ready")
}

// probeHandshake opens a real Postgres connection. A server that answers
// the startup message counts as accepting connections even when it rejects
// the credentials, matching pg_isready semantics.
func (p *PostgresProber) probeHandshake(ctx context.Context, connectTimeout time.Duration) Outcome {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	user := p.Target.User
	if user == "" {
		user = "postgres"
	}
	dsn := fmt.Sprintf("postgres://%s@%s/postgres?sslmode=prefer", url.QueryEscape(user), p.Target.Addr())

	conn, err := pgconn.Connect(cctx, dsn)
	if err == nil {
		_ = conn.Close(cctx)
		return Succeeded()
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Succeeded()
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return Abort(status.Interrupted, "interrupted")
	}
	return Retry(retryReason(err))
}
