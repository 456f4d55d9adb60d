package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/target"
	"github.com/rs/zerolog/log"
)

// HTTPProber issues a HEAD request against the raw URL and succeeds on any
// 2xx status. When the HTTP mechanism is unavailable (or the scheme is ftp,
// which net/http does not speak) it degrades to a TCP connect against the
// host with the scheme's default port.
type HTTPProber struct {
	Target target.Target
	Caps   *Capabilities

	// Client overrides the per-attempt client, for tests.
	Client *http.Client
}

func (p *HTTPProber) ProbeOnce(ctx context.Context, connectTimeout time.Duration) Outcome {
	if p.Target.Protocol == target.FTP || !p.Caps.Has(CapHTTP) {
		fallback := &TCPProber{Target: p.Target, Caps: p.Caps}
		return fallback.ProbeOnce(ctx, connectTimeout)
	}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: connectTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.Target.Raw, nil)
	if err != nil {
		return Abort(status.MalformedURL, "malformed URL: "+err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		return p.classifyRequestError(err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return Succeeded()
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Retry(fmt.Sprintf("access denied (status %d)", resp.StatusCode))
	}
	return Retry(fmt.Sprintf("unexpected status %d", resp.StatusCode))
}

func (p *HTTPProber) classifyRequestError(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		return Abort(status.Interrupted, "interrupted")
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		msg := ue.Err.Error()
		if strings.Contains(msg, "unsupported protocol scheme") {
			return Abort(status.UnsupportedHTTPProtocol, "unsupported protocol: "+msg)
		}
		if strings.Contains(msg, "missing protocol scheme") || strings.Contains(msg, "invalid URL") {
			return Abort(status.MalformedURL, "malformed URL: "+msg)
		}
	}

	reason := retryReason(err)
	if strings.HasPrefix(reason, "transport error") {
		log.Debug().Str("target", p.Target.Raw).Err(err).Msg("unclassified transport error")
	}
	return Retry(reason)
}
