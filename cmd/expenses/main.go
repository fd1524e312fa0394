package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"expenses/internal/amqp"
	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/legacy"
	"expenses/internal/log"
	"expenses/internal/services"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	flags struct {
		envFile  string
		backend  string
		dbPath   string
		logLevel string
		logJSON  bool
	}

	cfg     *config.Config
	logger  *log.Logger
	service *services.ExpenseService
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "expenses",
		Short: "Track personal expenses locally",
		Long: `expenses records spending entries in a local store and reports them as a
chronological list or as a monthly breakdown by category.

Configuration is read from the environment (and a .env file when present).
Flags override the environment.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.envFile, "env-file", "", "load environment from this file (default: .env)")
	pf.StringVar(&a.flags.backend, "backend", "", "data backend (sqlite, redis, memory)")
	pf.StringVar(&a.flags.dbPath, "db", "", "SQLite database path")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&a.flags.logJSON, "log-json", false, "log as JSON")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.monthCmd(),
		a.deleteCmd(),
		a.clearCmd(),
		a.summaryCmd(),
		a.importCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if !needsService(cmd) {
		return nil
	}
	ctx := cmd.Context()

	if a.flags.envFile != "" {
		cli.LoadEnvFile(a.flags.envFile)
	} else {
		cli.LoadEnvFile()
	}

	level := a.flags.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	a.logger = cli.SetupLogger(level, a.flags.logJSON)
	cfg, err := cli.LoadAndValidateConfig(a.logger, a.applyFlags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(a.logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return cli.Fail(a.logger, log.OpStartup, err)
	}

	opts := []services.Option{
		services.WithViewCache(cfg.ViewCacheSize, cfg.ViewCacheTTL),
		services.WithDegraded(result.Degraded),
		services.WithEphemeral(result.Type == backend.MemoryBackend),
		services.WithLogger(a.logger.WithComponent(log.ComponentExpense)),
	}
	if notifier := a.openNotifier(); notifier != nil {
		opts = append(opts, services.WithNotifier(notifier))
	}
	a.service = services.NewExpenseService(result.Store, opts...)

	if err := a.service.Start(ctx); err != nil {
		return cli.Fail(a.logger, log.OpStartup, err)
	}
	if result.Degraded {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: storage unavailable, entries will not be saved")
	}

	if cmd.Name() != "import" && a.service.Persistent() {
		a.importLegacy(ctx, cfg.LegacyImportPath)
	}
	return nil
}

// applyFlags lets flags win over the environment. The environment itself is
// left alone so one invocation cannot leak into the next.
func (a *app) applyFlags(cfg *config.Config) {
	if a.flags.backend != "" {
		cfg.DataBackend = a.flags.backend
	}
	if a.flags.dbPath != "" {
		cfg.SQLiteDBPath = a.flags.dbPath
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
}

func (a *app) openNotifier() *amqp.Client {
	if a.cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPRoutingKey)
	if err != nil {
		a.logger.Warn("Failed to initialize AMQP client, continuing without change events",
			log.FieldError, err)
		return nil
	}
	a.logger.Debug("Initialized AMQP client",
		"exchange", a.cfg.AMQPExchange,
		"routing_key", a.cfg.AMQPRoutingKey)
	return client
}

// importLegacy runs the one-time migration of the legacy flat list. Failures
// leave the legacy data in place for the next run.
func (a *app) importLegacy(ctx context.Context, path string) {
	if path == "" {
		return
	}
	n, err := a.service.ImportLegacy(ctx, legacy.NewFileSource(path))
	if err != nil {
		a.logger.WarnContext(ctx, "Legacy import failed, will retry on next start",
			log.FieldOperation, log.OpImport,
			log.FieldError, err)
		return
	}
	if n > 0 {
		a.logger.InfoContext(ctx, "Migrated legacy expenses", log.FieldCount, n, "path", path)
	}
}

func (a *app) close() {
	if a.service == nil {
		return
	}
	if err := a.service.Close(); err != nil {
		a.logger.Error("Failed to close expense service", log.FieldError, err)
	}
}

func needsService(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd, "completion":
			return false
		}
	}
	return true
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Fprintln(stderr, "aborted")
			return 1
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
