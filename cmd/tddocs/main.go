package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hpungsan/tddocs/internal/config"
	"github.com/hpungsan/tddocs/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// EnvHome names the directory holding config.json. Defaults to the working directory.
const EnvHome = "TDDOCS_HOME"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "web": true, "stats": true,
	"search": true, "operator": true, "rebuild": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return cliCommands[arg] || isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  _            _
 | |_ __| | __| | ___   ___ ___
 | __/ _' |/ _' |/ _ \ / __/ __|
 | || (_| | (_| | (_) | (__\__ \
  \__\__,_|\__,_|\___/ \___|___/

  TouchDesigner documentation server

  Usage: tddocs <command> [options]
         tddocs --help

  MCP server mode requires piped input.`)
}

// newLogger writes text logs to stderr so stdout stays free for MCP frames.
// TDDOCS_LOG_LEVEL accepts debug, info, warn or error.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if v := strings.TrimSpace(os.Getenv("TDDOCS_LOG_LEVEL")); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			level = slog.LevelInfo
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := newLogger()

	baseDir := os.Getenv(EnvHome)
	if baseDir == "" {
		baseDir = "."
	}
	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	rt := newEnv(cfg, logger)

	if isCLIMode(os.Args) {
		if err := newCLIApp(rt).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tddocs --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := rt.serve(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
