package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/agentdeck/agentdeck/internal/config"
	"github.com/agentdeck/agentdeck/internal/database"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `agentdeck - persistence lifecycle manager

Usage:
  agentdeck [-config file] <command> [flags]

Commands:
  init     Initialize the database schema
  reset    Drop all tables (and recreate unless -drop-only)
  import   Import team configurations from a directory
  status   Report backend and schema status
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("agentdeck\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s, SQLite Driver: %s\n", database.BuildMode, database.SQLiteDriverName)
		os.Exit(0)
	}

	global := flag.NewFlagSet("agentdeck", flag.ExitOnError)
	configPath := global.String("config", "", "path to YAML config file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	if global.NArg() < 1 {
		global.Usage()
		os.Exit(2)
	}
	command := global.Arg(0)
	args := global.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	m, err := database.Open(database.Config{
		URI:        cfg.Database.URI,
		BaseDir:    cfg.Database.BaseDir,
		PoolSize:   cfg.Database.PoolSize,
		DirtyReads: cfg.Database.DirtyReads,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res := run(ctx, m, command, args)
	if !res.Status {
		logger.Error(res.Message)
		os.Exit(1)
	}
	logger.Info(res.Message)
	if res.Data != nil {
		fmt.Printf("%+v\n", res.Data)
	}
}

func run(ctx context.Context, m *database.Manager, command string, args []string) database.Response {
	switch command {
	case "init":
		fs := flag.NewFlagSet("init", flag.ExitOnError)
		upgrade := fs.Bool("upgrade", false, "apply pending migrations to an existing schema")
		forceMigrations := fs.Bool("force-migrations", true, "reinitialize migration bookkeeping")
		_ = fs.Parse(args)
		return m.Initialize(ctx, *upgrade, *forceMigrations)

	case "reset":
		fs := flag.NewFlagSet("reset", flag.ExitOnError)
		dropOnly := fs.Bool("drop-only", false, "drop tables without recreating them")
		_ = fs.Parse(args)
		return m.Reset(ctx, !*dropOnly)

	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		dir := fs.String("dir", "", "directory containing team config files")
		user := fs.String("user", "", "user id to own the imported teams")
		checkExists := fs.Bool("check-exists", false, "skip configs the user already owns")
		_ = fs.Parse(args)
		if *dir == "" || *user == "" {
			return database.Response{Message: "import requires -dir and -user"}
		}
		return m.ImportTeamsFromDirectory(ctx, *dir, *user, *checkExists)

	case "status":
		return m.Status(ctx)

	default:
		return database.Response{Message: fmt.Sprintf("unknown command %q", command)}
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}
