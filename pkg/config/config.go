package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".waitfor.yaml"

// Run is the process-wide configuration, read-only once the run starts.
type Run struct {
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	// ScriptTimeout bounds the entire run across all targets; zero means
	// unbounded.
	ScriptTimeout time.Duration
	Verbose       bool
	Colour        bool
	// Targets configured through the optional config file; CLI positionals
	// are appended after these.
	Targets []string
}

// Defaults returns the built-in configuration: poll every 2s, 5s per
// attempt, no overall bound, verbose on.
func Defaults() Run {
	return Run{
		PollInterval:   2 * time.Second,
		ConnectTimeout: 5 * time.Second,
		ScriptTimeout:  0,
		Verbose:        true,
	}
}

// File is the optional on-disk config so compose-style setups don't need a
// long argv. All durations are whole seconds, matching the flags.
type File struct {
	Targets           []string `yaml:"targets,omitempty"`
	PollInterval      int      `yaml:"poll-interval,omitempty"`
	ConnectionTimeout int      `yaml:"connection-timeout,omitempty"`
	Timeout           int      `yaml:"timeout,omitempty"`
	Quiet             bool     `yaml:"quiet,omitempty"`
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &f, nil
}

// LoadOptional returns an empty File when path does not exist.
func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// ApplyFile overlays file values onto r. Zero values leave r untouched.
func (r Run) ApplyFile(f *File) Run {
	if f == nil {
		return r
	}
	if f.PollInterval > 0 {
		r.PollInterval = time.Duration(f.PollInterval) * time.Second
	}
	if f.ConnectionTimeout > 0 {
		r.ConnectTimeout = time.Duration(f.ConnectionTimeout) * time.Second
	}
	if f.Timeout > 0 {
		r.ScriptTimeout = time.Duration(f.Timeout) * time.Second
	}
	if f.Quiet {
		r.Verbose = false
	}
	r.Targets = append(r.Targets, f.Targets...)
	return r
}

// ApplyEnv overlays the environment onto r. A .env file in the working
// directory is honoured first.
func (r Run) ApplyEnv() Run {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("skipping .env file")
	}

	r.PollInterval = secondsEnv("DEPENDENCY_POLL_INTERVAL", r.PollInterval)
	r.ConnectTimeout = secondsEnv("DEPENDENCY_CONNECT_TIMEOUT", r.ConnectTimeout)
	r.ScriptTimeout = secondsEnv("SCRIPT_TIMEOUT", r.ScriptTimeout)
	r.Verbose = boolEnv("DEPENDENCY_LOG_VERBOSE", r.Verbose)
	return r
}

// Validate checks the invariants the core relies on.
func (r Run) Validate() error {
	if r.PollInterval <= 0 {
		return errors.New("poll interval must be > 0")
	}
	if r.ConnectTimeout <= 0 {
		return errors.New("connection timeout must be > 0")
	}
	if r.ScriptTimeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	return nil
}

func secondsEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("ignoring invalid duration")
		return def
	}
	return time.Duration(n) * time.Second
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("var", key).Str("value", v).Msg("ignoring invalid boolean")
		return def
	}
	return b
}
