package probe

import (
	"context"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// Capability names. The native ones always report available unless
// explicitly disabled; the rest resolve through the host's PATH.
const (
	CapHTTP      = "http"       // native net/http client
	CapPGConn    = "pgconn"     // native Postgres wire handshake
	CapPGIsReady = "pg_isready" // external readiness utility
	CapNetcat    = "nc"         // external netcat
)

var nativeCaps = map[string]bool{
	CapHTTP:   true,
	CapPGConn: true,
}

// Runner executes an external probe command, returning a non-nil error on a
// non-zero exit. Injectable so tests can script tool behaviour.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	// #nosec G204 -- name comes from the capability registry's PATH lookup.
	return exec.CommandContext(ctx, name, args...).Run()
}

// Capabilities is the memoized registry of probe mechanisms available on
// this host. Each external tool is looked up at most once per run.
type Capabilities struct {
	lookPath func(string) (string, error)
	run      Runner

	mu       sync.Mutex
	paths    map[string]string
	disabled map[string]bool
}

func NewCapabilities() *Capabilities {
	return &Capabilities{
		lookPath: exec.LookPath,
		run:      execRunner,
		paths:    map[string]string{},
		disabled: map[string]bool{},
	}
}

// WithLookPath replaces the PATH lookup, for tests.
func (c *Capabilities) WithLookPath(fn func(string) (string, error)) *Capabilities {
	c.lookPath = fn
	return c
}

// WithRunner replaces the external command runner, for tests.
func (c *Capabilities) WithRunner(run Runner) *Capabilities {
	c.run = run
	return c
}

// Disable forces the named capabilities to report unavailable so the
// fallback path is taken deterministically.
func (c *Capabilities) Disable(names ...string) *Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		c.disabled[n] = true
	}
	return c
}

// Has reports whether the named mechanism can be used. Results are cached
// for the remainder of the run.
func (c *Capabilities) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled[name] {
		return false
	}
	if nativeCaps[name] {
		return true
	}
	path, seen := c.paths[name]
	if !seen {
		p, err := c.lookPath(name)
		if err != nil {
			p = ""
		}
		c.paths[name] = p
		path = p
		log.Debug().Str("tool", name).Bool("available", p != "").Msg("capability probed")
	}
	return path != ""
}

// Path returns the resolved path of an external tool, or the bare name if
// it has not been probed.
func (c *Capabilities) Path(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.paths[name]; p != "" {
		return p
	}
	return name
}

// Run invokes an external probe tool through the injectable runner.
func (c *Capabilities) Run(ctx context.Context, name string, args ...string) error {
	return c.run(ctx, name, args...)
}
