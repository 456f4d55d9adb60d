package target

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/pkg/errors"
)

type Protocol string

const (
	HTTP     Protocol = "http"
	HTTPS    Protocol = "https"
	FTP      Protocol = "ftp"
	Postgres Protocol = "postgres"
	TCP      Protocol = "tcp"
)

// Default ports used when a target omits one. For http/https/ftp they only
// matter on the TCP fallback path; the HTTP probe uses the raw URL as-is.
var defaultPorts = map[Protocol]int{
	HTTP:     80,
	HTTPS:    443,
	FTP:      21,
	Postgres: 5432,
}

// Target is one fully resolved service address awaiting readiness.
type Target struct {
	Raw      string
	Protocol Protocol
	Host     string
	Port     int
	User     string // postgres only
}

// Addr returns host:port in dialable form, bracketing IPv6 hosts.
func (t Target) Addr() string {
	return net.JoinHostPort(strings.Trim(t.Host, "[]"), strconv.Itoa(t.Port))
}

// Classify parses a raw address string into a Target. It is pure and
// synchronous; every ambiguity other than the documented port defaults is a
// fatal error carrying its exit code.
func Classify(raw string) (Target, error) {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return Target{}, status.Exitf(status.UnsupportedScheme, raw, "unsupported protocol: no scheme")
	}

	switch Protocol(scheme) {
	case TCP:
		return classifyTCP(raw, rest)
	case Postgres:
		return classifyPostgres(raw, rest)
	case HTTP, HTTPS, FTP:
		return classifyURL(raw, Protocol(scheme), rest)
	default:
		return Target{}, status.Exitf(status.UnsupportedScheme, raw, "unsupported protocol %q", scheme)
	}
}

// classifyTCP splits host:port on the rightmost colon so that bare IPv6
// hosts survive. Both parts are mandatory.
func classifyTCP(raw, rest string) (Target, error) {
	host, port, err := splitHostPort(rest)
	if err != nil || host == "" {
		return Target{}, status.Exitf(status.MissingHostPort, raw, "tcp target needs host and port")
	}
	return Target{Raw: raw, Protocol: TCP, Host: host, Port: port}, nil
}

func classifyPostgres(raw, rest string) (Target, error) {
	var user string
	if i := strings.Index(rest, "@"); i >= 0 {
		user, rest = rest[:i], rest[i+1:]
	}
	host := rest
	port := defaultPorts[Postgres]
	if h, p, err := splitHostPort(rest); err == nil {
		host, port = h, p
	}
	if host == "" {
		return Target{}, status.Exitf(status.MalformedURL, raw, "postgres target needs a host")
	}
	return Target{Raw: raw, Protocol: Postgres, Host: host, Port: port, User: user}, nil
}

// classifyURL keeps the raw URL untouched for the HTTP probe and derives
// host/port only for the TCP fallback path.
func classifyURL(raw string, proto Protocol, rest string) (Target, error) {
	hostport := rest
	if i := strings.IndexAny(hostport, "/?#"); i >= 0 {
		hostport = hostport[:i]
	}
	if i := strings.LastIndex(hostport, "@"); i >= 0 {
		hostport = hostport[i+1:]
	}
	host := hostport
	port := defaultPorts[proto]
	if h, p, err := splitHostPort(hostport); err == nil {
		host, port = h, p
	}
	if host == "" {
		return Target{}, status.Exitf(status.MalformedURL, raw, "malformed URL: missing host")
	}
	return Target{Raw: raw, Protocol: proto, Host: host, Port: port}, nil
}

func splitHostPort(s string) (string, int, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, errors.New("no port")
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil || port <= 0 {
		return "", 0, errors.New("bad port")
	}
	return s[:i], port, nil
}
