package target

import (
	"testing"

	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/stretchr/testify/require"
)

func TestClassify_SupportedSchemes(t *testing.T) {
	cases := []struct {
		raw  string
		want Target
	}{
		{"tcp://localhost:9999", Target{Protocol: TCP, Host: "localhost", Port: 9999}},
		{"tcp://[::1]:8080", Target{Protocol: TCP, Host: "[::1]", Port: 8080}},
		{"tcp://::1:8080", Target{Protocol: TCP, Host: "::1", Port: 8080}},
		{"postgres://db", Target{Protocol: Postgres, Host: "db", Port: 5432}},
		{"postgres://db:5433", Target{Protocol: Postgres, Host: "db", Port: 5433}},
		{"postgres://admin@db", Target{Protocol: Postgres, Host: "db", Port: 5432, User: "admin"}},
		{"postgres://admin@db:6000", Target{Protocol: Postgres, Host: "db", Port: 6000, User: "admin"}},
		{"http://example.com", Target{Protocol: HTTP, Host: "example.com", Port: 80}},
		{"http://example.com:8080/health", Target{Protocol: HTTP, Host: "example.com", Port: 8080}},
		{"https://example.com/deep/path?x=1", Target{Protocol: HTTPS, Host: "example.com", Port: 443}},
		{"ftp://files.example.com", Target{Protocol: FTP, Host: "files.example.com", Port: 21}},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Classify(tc.raw)
			require.NoError(t, err)
			tc.want.Raw = tc.raw
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClassify_UnsupportedScheme(t *testing.T) {
	for _, raw := range []string{"ftp2://x:1", "redis://localhost:6379", "localhost:80", "just-a-string"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Classify(raw)
			require.Error(t, err)
			require.Equal(t, status.UnsupportedScheme, status.CodeOf(err))
		})
	}
}

func TestClassify_MalformedTCP(t *testing.T) {
	for _, raw := range []string{"tcp://", "tcp://localhost", "tcp://:8080", "tcp://host:", "tcp://host:abc", "tcp://host:0"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Classify(raw)
			require.Error(t, err)
			require.Equal(t, status.MissingHostPort, status.CodeOf(err))
		})
	}
}

func TestClassify_MalformedURL(t *testing.T) {
	for _, raw := range []string{"http://", "postgres://user@"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Classify(raw)
			require.Error(t, err)
			require.Equal(t, status.MalformedURL, status.CodeOf(err))
		})
	}
}

func TestClassify_UserSplitsOnFirstAt(t *testing.T) {
	got, err := Classify("postgres://a@b@host:5432")
	require.NoError(t, err)
	require.Equal(t, "a", got.User)
	require.Equal(t, "b@host", got.Host)
}

func TestClassify_Idempotent(t *testing.T) {
	first, err := Classify("postgres://admin@db:6000")
	require.NoError(t, err)
	second, err := Classify("postgres://admin@db:6000")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAddr_BracketsIPv6(t *testing.T) {
	tgt := Target{Host: "::1", Port: 80}
	require.Equal(t, "[::1]:80", tgt.Addr())

	tgt = Target{Host: "[::1]", Port: 80}
	require.Equal(t, "[::1]:80", tgt.Addr())

	tgt = Target{Host: "localhost", Port: 80}
	require.Equal(t, "localhost:80", tgt.Addr())
}
