package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/ossp/cli/config"
	"github.com/pithecene-io/ossp/dispatch"
	"github.com/pithecene-io/ossp/iox"
	"github.com/pithecene-io/ossp/ipc"
	"github.com/pithecene-io/ossp/log"
	"github.com/pithecene-io/ossp/metrics"
	"github.com/pithecene-io/ossp/sbuf"
	"github.com/pithecene-io/ossp/types"
)

// Spec describes a slave program.
type Spec struct {
	// Name identifies the slave in its log name ("ossp-<Name>[user:pid]").
	Name  string
	Usage string
	// Setup registers the slave's opcodes. It runs once, after the
	// channels and the logger exist and before the first command is read.
	Setup func(env *Env) (*Handlers, error)
}

// Env is what a slave's Setup can use.
type Env struct {
	Config    *config.Config
	Logger    *log.Logger
	Notifier  *ipc.Notifier
	Collector *metrics.Collector
	User      string
}

// Handlers is the slave's contribution to the dispatch engine.
type Handlers struct {
	Table   types.OpcodeTable
	Actions []dispatch.Action
	Scope   dispatch.Scope
	// Close runs after the dispatch loop returns. Optional.
	Close func() error
}

// options holds the resolved command line and config values.
type options struct {
	cmdFD      int
	notifyFD   int
	level      int
	timestamps bool
	maxBlob    uint64
	config     *config.Config
}

// SlaveApp returns the CLI application for spec. Its action serves the
// command channel until the controller closes it.
func SlaveApp(spec Spec) *cli.App {
	return &cli.App{
		Name:            "ossp-" + spec.Name,
		Usage:           spec.Usage,
		Version:         fmt.Sprintf("%s (protocol %d)", types.Version, types.ProtocolVersion),
		Flags:           SlaveFlags(),
		HideHelpCommand: true,
		ExitErrHandler:  ExitErrHandler,
		Action: func(c *cli.Context) error {
			opts, err := parseOptions(c)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			return runSlave(spec, opts, c.App.ErrWriter)
		},
	}
}

func parseOptions(c *cli.Context) (options, error) {
	opts := options{
		cmdFD:    c.Int(flagCmdFD),
		notifyFD: c.Int(flagNotifyFD),
		config:   &config.Config{},
	}
	if opts.cmdFD < 0 || opts.notifyFD < 0 {
		return opts, fmt.Errorf("both -%s and -%s descriptors are required", flagCmdFD, flagNotifyFD)
	}

	if path := c.String(flagConfig); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return opts, err
		}
		opts.config = cfg
	}

	// Flags override config values.
	opts.level = opts.config.LogLevel
	if c.IsSet(flagLogLevel) {
		opts.level = c.Int(flagLogLevel)
	}
	if opts.level < 0 {
		return opts, fmt.Errorf("invalid log level %d", opts.level)
	}
	if opts.level == 0 {
		opts.level = log.DefaultLevel
	}
	opts.timestamps = c.Bool(flagTimestamp) || opts.config.LogTimestamp

	opts.maxBlob = uint64(opts.config.MaxBlobSize)
	if c.IsSet(flagMaxBlob) {
		size, err := config.ParseByteSize(c.String(flagMaxBlob))
		if err != nil {
			return opts, fmt.Errorf("invalid --%s: %w", flagMaxBlob, err)
		}
		opts.maxBlob = uint64(size)
	}
	if opts.maxBlob == 0 {
		opts.maxBlob = sbuf.DefaultLimit
	}
	return opts, nil
}

func runSlave(spec Spec, opts options, logOut io.Writer) error {
	// A vanished controller must surface as a write error, not kill us.
	signal.Ignore(syscall.SIGPIPE)

	userName := currentUser()
	logger := log.NewLoggerWithWriter(log.Options{
		Name:       fmt.Sprintf("ossp-%s[%s:%d]", spec.Name, userName, os.Getpid()),
		User:       userName,
		Level:      opts.level,
		Timestamps: opts.timestamps,
	}, logOut)
	defer iox.DiscardErr(logger.Sync)

	ch, err := ipc.FromFD(opts.cmdFD, "ossp-cmd")
	if err != nil {
		logger.Error("failed to open command channel", map[string]any{"fd": opts.cmdFD, "error": err.Error()})
		return cli.Exit(fmt.Sprintf("command channel: %v", err), exitUsage)
	}
	defer iox.DiscardClose(ch)

	notifyFile := os.NewFile(uintptr(opts.notifyFD), "ossp-notify")
	if notifyFile == nil {
		return cli.Exit(fmt.Sprintf("invalid notify descriptor %d", opts.notifyFD), exitUsage)
	}
	defer iox.DiscardClose(notifyFile)

	collector := metrics.NewCollector(spec.Name, userName)
	env := &Env{
		Config:    opts.config,
		Logger:    logger,
		Notifier:  ipc.NewNotifier(notifyFile),
		Collector: collector,
		User:      userName,
	}

	if spec.Setup == nil {
		return cli.Exit("slave has no setup", exitUsage)
	}
	handlers, err := spec.Setup(env)
	if err == nil && handlers == nil {
		err = fmt.Errorf("no handlers registered")
	}
	if err != nil {
		logger.Error("slave setup failed", map[string]any{"error": err.Error()})
		return cli.Exit(fmt.Sprintf("setup: %v", err), exitUsage)
	}
	if handlers.Close != nil {
		defer func() {
			if cerr := handlers.Close(); cerr != nil {
				logger.Warn("slave cleanup failed", map[string]any{"error": cerr.Error()})
			}
		}()
	}

	engine, err := dispatch.NewEngine(ch, dispatch.Config{
		Table:       handlers.Table,
		Actions:     handlers.Actions,
		Scope:       handlers.Scope,
		MaxBlobSize: opts.maxBlob,
		Logger:      logger,
		Collector:   collector,
	})
	if err != nil {
		logger.Error("invalid opcode registration", map[string]any{"error": err.Error()})
		return cli.Exit(fmt.Sprintf("setup: %v", err), exitUsage)
	}

	logger.Info("slave started", map[string]any{
		"opcodes":  len(handlers.Table),
		"max_blob": opts.maxBlob,
		"level":    opts.level,
	})

	serveErr := engine.Serve()
	logger.Info("slave exiting", collector.Snapshot().ToMap())
	if serveErr != nil {
		return cli.Exit(fmt.Sprintf("fatal: %v", serveErr), exitFatal)
	}
	return nil
}

// currentUser names the invoking user, falling back to the numeric uid.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("uid%d", os.Getuid())
}
