package cmds

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/waitfor/pkg/config"
	"github.com/go-go-golems/waitfor/pkg/events"
	"github.com/go-go-golems/waitfor/pkg/probe"
	"github.com/go-go-golems/waitfor/pkg/report"
	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/wait"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var errNoTargets = errors.New("no targets given")

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waitfor [flags] url... [-- command [args...]]",
		Short: "Block until services are reachable, then optionally exec a command",
		Long: `waitfor polls each given target until it becomes reachable, in order,
then optionally replaces itself with the trailing command.

Supported target forms:
  tcp://host:port
  postgres://[user@]host[:port]
  http://..., https://..., ftp://...`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.InitLoggerFromCobra(cmd)
		},
		RunE: runWait,
	}
	addFlags(cmd.Flags())
	return cmd
}

func addFlags(fs *pflag.FlagSet) {
	fs.IntP("timeout", "t", 0, "Overall run timeout in seconds (0 = unbounded)")
	fs.String("deadline", "", "Absolute wall-clock deadline for the run (any common date format)")
	fs.IntP("connection-timeout", "c", 5, "Timeout per probe attempt in seconds")
	fs.IntP("poll-interval", "p", 2, "Seconds between attempts")
	fs.BoolP("verbose", "v", false, "Report every attempt")
	fs.BoolP("quiet", "q", false, "Suppress all progress output")
	fs.BoolP("colour", "C", false, "Force coloured output")
	fs.Bool("events-json", false, "Emit NDJSON transition events on stdout")
	fs.String("config", "", "Path to config file (default "+config.DefaultConfigFilename+")")
}

// Execute runs the root command and maps errors onto the exit code
// contract: --help exits 1, a bare invocation exits 255, everything else
// carries its own code.
func Execute(version string) int {
	root := NewRootCmd(version)
	if err := logging.AddLoggingLayerToRootCommand(root, "waitfor"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return executeArgs(root, os.Args[1:])
}

func executeArgs(root *cobra.Command, args []string) int {
	if len(args) == 0 {
		_ = root.Usage()
		return 255
	}
	for _, a := range args {
		if a == "--" {
			break
		}
		if a == "--help" || a == "-h" {
			_ = root.Help()
			return 1
		}
	}

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if errors.Is(err, errNoTargets) {
			_ = root.Usage()
			return 255
		}
		fmt.Fprintln(root.ErrOrStderr(), "waitfor:", err)
		return status.CodeOf(err)
	}
	return 0
}

func runWait(cmd *cobra.Command, args []string) error {
	urls := args
	var trailing []string
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		urls = args[:dash]
		trailing = args[dash:]
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	urls = append(cfg.Targets, urls...)
	if len(urls) == 0 {
		return errNoTargets
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	quiet, _ := cmd.Flags().GetBool("quiet")
	var rep report.Reporter = report.Nop{}
	if !quiet {
		rep = report.NewConsole(cmd.OutOrStdout(), cfg.Verbose, cfg.Colour)
	}

	shutdownBus := func() {}
	if emit, _ := cmd.Flags().GetBool("events-json"); emit {
		bus, err := events.NewInMemoryBus()
		if err != nil {
			return err
		}
		bus.AddHandler("ndjson", events.TopicChecks, events.NDJSONHandler(cmd.OutOrStdout()))

		// The bus outlives the run context so tail events still flush after
		// an interrupt.
		busCtx, busCancel := context.WithCancel(context.Background())
		g := &errgroup.Group{}
		g.Go(func() error { return bus.Run(busCtx) })
		<-bus.Running()
		shutdownBus = func() {
			busCancel()
			_ = g.Wait()
		}

		rep = report.Multi(rep, events.NewBusReporter(bus.Publisher))
	}

	orch := wait.New(wait.Options{
		PollInterval:   cfg.PollInterval,
		ConnectTimeout: cfg.ConnectTimeout,
		ScriptTimeout:  cfg.ScriptTimeout,
	}, rep, probe.NewCapabilities())

	runErr := orch.Run(ctx, urls)
	shutdownBus()
	if runErr != nil {
		return runErr
	}

	if len(trailing) > 0 {
		return execInto(trailing)
	}
	return nil
}

func resolveConfig(cmd *cobra.Command) (config.Run, error) {
	fs := cmd.Flags()

	cfgPath, _ := fs.GetString("config")
	var file *config.File
	var err error
	if cfgPath != "" {
		file, err = config.LoadFromFile(cfgPath)
	} else {
		file, err = config.LoadOptional(config.DefaultConfigFilename)
	}
	if err != nil {
		return config.Run{}, err
	}

	cfg := config.Defaults().ApplyFile(file).ApplyEnv()

	if fs.Changed("poll-interval") {
		n, _ := fs.GetInt("poll-interval")
		cfg.PollInterval = time.Duration(n) * time.Second
	}
	if fs.Changed("connection-timeout") {
		n, _ := fs.GetInt("connection-timeout")
		cfg.ConnectTimeout = time.Duration(n) * time.Second
	}
	if fs.Changed("timeout") {
		n, _ := fs.GetInt("timeout")
		cfg.ScriptTimeout = time.Duration(n) * time.Second
	}
	if fs.Changed("deadline") {
		if fs.Changed("timeout") {
			return config.Run{}, errors.New("--deadline and --timeout are mutually exclusive")
		}
		s, _ := fs.GetString("deadline")
		when, err := dateparse.ParseLocal(s)
		if err != nil {
			return config.Run{}, errors.Wrapf(err, "parse deadline %q", s)
		}
		remaining := time.Until(when)
		if remaining <= 0 {
			return config.Run{}, errors.Errorf("deadline %s already passed", when.Format(time.RFC3339))
		}
		cfg.ScriptTimeout = remaining
	}
	if fs.Changed("verbose") {
		cfg.Verbose = true
	}
	if fs.Changed("quiet") {
		cfg.Verbose = false
	}
	if fs.Changed("colour") {
		cfg.Colour = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Run{}, err
	}
	return cfg, nil
}

// execInto replaces the current process with the trailing command; on
// success it never returns.
func execInto(argv []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return errors.Wrapf(err, "command not found: %s", argv[0])
	}
	log.Debug().Strs("argv", argv).Msg("exec into trailing command")
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return errors.Wrap(err, "exec")
	}
	return nil
}
