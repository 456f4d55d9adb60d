package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/target"
	"github.com/stretchr/testify/require"
)

func httpTarget(t *testing.T, raw string) target.Target {
	t.Helper()
	tgt, err := target.Classify(raw)
	require.NoError(t, err)
	return tgt
}

func TestHTTPProber_SuccessOn2xx(t *testing.T) {
	for _, code := range []int{200, 204, 299} {
		t.Run(fmt.Sprintf("status %d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodHead, r.Method)
				w.WriteHeader(code)
			}))
			defer srv.Close()

			p := &HTTPProber{Target: httpTarget(t, srv.URL), Caps: noToolsCaps()}
			out := p.ProbeOnce(context.Background(), time.Second)
			require.Equal(t, Success, out.Class)
		})
	}
}

func TestHTTPProber_NonSuccessStatusIsRetryable(t *testing.T) {
	cases := []struct {
		code   int
		reason string
	}{
		{301, "unexpected status 301"},
		{401, "access denied (status 401)"},
		{403, "access denied (status 403)"},
		{404, "unexpected status 404"},
		{500, "unexpected status 500"},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
			}))
			defer srv.Close()

			p := &HTTPProber{Target: httpTarget(t, srv.URL), Caps: noToolsCaps()}
			out := p.ProbeOnce(context.Background(), time.Second)
			require.Equal(t, Retryable, out.Class)
			require.Equal(t, tc.reason, out.Reason)
		})
	}
}

func TestHTTPProber_ConnectionRefusedIsRetryable(t *testing.T) {
	port := reserveClosedPort(t)
	raw := fmt.Sprintf("http://127.0.0.1:%d", port)

	p := &HTTPProber{Target: httpTarget(t, raw), Caps: noToolsCaps()}
	out := p.ProbeOnce(context.Background(), time.Second)
	require.Equal(t, Retryable, out.Class)
	require.Equal(t, "connection refused", out.Reason)
}

func TestHTTPProber_UnresolvableHostIsRetryable(t *testing.T) {
	tgt := target.Target{
		Raw:      "http://no-such-host.invalid",
		Protocol: target.HTTP,
		Host:     "no-such-host.invalid",
		Port:     80,
	}
	p := &HTTPProber{Target: tgt, Caps: noToolsCaps()}
	out := p.ProbeOnce(context.Background(), time.Second)
	require.Equal(t, Retryable, out.Class)
	require.Equal(t, "could not resolve host", out.Reason)
}

func TestHTTPProber_MalformedURLIsFatal(t *testing.T) {
	tgt := target.Target{
		Raw:      "http://bad url with spaces",
		Protocol: target.HTTP,
		Host:     "bad url with spaces",
		Port:     80,
	}
	p := &HTTPProber{Target: tgt, Caps: noToolsCaps()}
	out := p.ProbeOnce(context.Background(), time.Second)
	require.Equal(t, Fatal, out.Class)
	require.Equal(t, status.MalformedURL, out.Code)
}

func TestHTTPProber_FTPFallsBackToTCP(t *testing.T) {
	_, port := listen(t)
	raw := fmt.Sprintf("ftp://127.0.0.1:%d", port)

	p := &HTTPProber{Target: httpTarget(t, raw), Caps: noToolsCaps()}
	out := p.ProbeOnce(context.Background(), time.Second)
	require.Equal(t, Success, out.Class)
}

func TestHTTPProber_DisabledHTTPFallsBackToTCP(t *testing.T) {
	// The fallback must hit host:port directly even though the raw URL has
	// a path component.
	ln, port := listen(t)
	raw := fmt.Sprintf("http://127.0.0.1:%d/health", port)

	caps := noToolsCaps().Disable(CapHTTP)
	p := &HTTPProber{Target: httpTarget(t, raw), Caps: caps}

	done := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
		close(done)
	}()

	out := p.ProbeOnce(context.Background(), time.Second)
	require.Equal(t, Success, out.Class)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fallback never dialed the listener")
	}
}

func TestHTTPProber_TimeoutIsRetryable(t *testing.T) {
	ln, port := listen(t)
	// Accept but never respond so the client times out.
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer func() { _ = conn.Close() }()
		}
	}()

	raw := fmt.Sprintf("http://127.0.0.1:%d", port)
	p := &HTTPProber{Target: httpTarget(t, raw), Caps: noToolsCaps()}
	out := p.ProbeOnce(context.Background(), 100*time.Millisecond)
	require.Equal(t, Retryable, out.Class)
	require.Equal(t, "connection timed out", out.Reason)
}
