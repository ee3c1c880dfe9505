package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tddocs/internal/config"
	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
	"github.com/hpungsan/tddocs/internal/format"
	"github.com/hpungsan/tddocs/internal/manager"
	"github.com/hpungsan/tddocs/internal/mcp"
	"github.com/hpungsan/tddocs/internal/web"
	"github.com/hpungsan/tddocs/internal/workflow"
)

// env holds what every command needs. The manager is created on first
// use so help and version output never touch the sources.
type env struct {
	cfg    *config.Config
	logger *slog.Logger

	// progress, when set before the manager is created, receives build events.
	progress func(manager.ProgressEvent)

	mgr      *manager.Manager
	patterns *workflow.Table
}

func newEnv(cfg *config.Config, logger *slog.Logger) *env {
	return &env{cfg: cfg, logger: logger}
}

func (rt *env) manager() *manager.Manager {
	if rt.mgr == nil {
		opts := manager.OptionsFromConfig(rt.cfg)
		opts.Logger = rt.logger
		opts.Progress = rt.progress
		rt.mgr = manager.New(opts)
		rt.patterns = loadPatterns(rt.cfg.PatternsPath, rt.logger)
	}
	return rt.mgr
}

// ready returns an initialized manager.
func (rt *env) ready(ctx context.Context) (*manager.Manager, error) {
	mgr := rt.manager()
	if err := mgr.Initialize(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

// serve initializes the corpus and runs the MCP stdio server.
func (rt *env) serve(ctx context.Context) error {
	mgr, err := rt.ready(ctx)
	if err != nil {
		return err
	}
	return mcp.Run(mgr, rt.patterns, rt.cfg, Version)
}

// loadPatterns reads the workflow table. A missing file yields an empty
// table; a broken one is logged and ignored.
func loadPatterns(path string, logger *slog.Logger) *workflow.Table {
	t, err := workflow.LoadTable(path)
	switch {
	case err == nil:
		logger.Debug("workflow patterns loaded", "path", path, "operators", t.Len())
		return t
	case stderrors.Is(err, fs.ErrNotExist):
		logger.Info("no workflow patterns file, suggestions disabled", "path", path)
	default:
		logger.Warn("workflow patterns unreadable, suggestions disabled", "path", path, "error", err)
	}
	return workflow.NewTable(nil)
}

// newCLIApp creates the CLI application with all commands. rt may be nil
// when only help or version output is needed.
func newCLIApp(rt *env) *cli.App {
	app := &cli.App{
		Name:    "tddocs",
		Usage:   "TouchDesigner documentation server",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(rt),
			webCmd(rt),
			statsCmd(rt),
			searchCmd(rt),
			operatorCmd(rt),
			rebuildCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio (the default with no command)",
		Action: func(c *cli.Context) error {
			if err := rt.serve(c.Context); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// webCmd creates the web command.
func webCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Browse the documentation in a local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8765, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			mgr, err := rt.ready(c.Context)
			if err != nil {
				return outputError(err)
			}
			srv, err := web.NewServer(mgr, rt.patterns, rt.logger, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, rt.logger)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show corpus and index statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of markdown"},
		},
		Action: func(c *cli.Context) error {
			mgr, err := rt.ready(c.Context)
			if err != nil {
				return outputError(err)
			}
			st, err := mgr.Stats()
			if err != nil {
				return outputError(err)
			}
			return output(c, st, format.Stats(st))
		},
	}
}

// searchCmd creates the search command.
func searchCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search operators, tutorials or the Python API",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Value: string(docs.KindOperator), Usage: "operator|tutorial|python_class"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Max results (0 for all)"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of markdown"},
		},
		Action: func(c *cli.Context) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return outputError(errors.NewInvalidRequest("search query is required"))
			}
			mgr, err := rt.ready(c.Context)
			if err != nil {
				return outputError(err)
			}

			limit := c.Int("limit")
			switch docs.Kind(c.String("kind")) {
			case docs.KindOperator:
				res, err := mgr.SearchOperators(query, limit)
				if err != nil {
					return outputError(err)
				}
				return output(c, res, format.OperatorSearch(query, res))
			case docs.KindTutorial:
				res, err := mgr.SearchTutorials(query, limit)
				if err != nil {
					return outputError(err)
				}
				return output(c, res, format.TutorialSearch(query, res))
			case docs.KindPythonClass:
				res, err := mgr.SearchPythonAPI(query, limit)
				if err != nil {
					return outputError(err)
				}
				return output(c, res, format.PythonSearch(query, res))
			default:
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown kind %q", c.String("kind"))))
			}
		},
	}
}

// operatorCmd creates the operator command.
func operatorCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:      "operator",
		Usage:     "Show an operator's documentation",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-examples", Usage: "Omit examples"},
			&cli.BoolFlag{Name: "no-tips", Usage: "Omit tips"},
			&cli.BoolFlag{Name: "no-parameters", Usage: "Omit the parameter table"},
			&cli.BoolFlag{Name: "workflow", Aliases: []string{"w"}, Usage: "Append workflow suggestions"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of markdown"},
		},
		Action: func(c *cli.Context) error {
			name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			mgr, err := rt.ready(c.Context)
			if err != nil {
				return outputError(err)
			}
			e, err := mgr.GetOperator(name, docs.OperatorOptions{
				ShowExamples:   !c.Bool("no-examples"),
				ShowTips:       !c.Bool("no-tips"),
				ShowParameters: !c.Bool("no-parameters"),
			})
			if err != nil {
				return outputError(err)
			}

			text := format.Operator(e)
			if c.Bool("workflow") {
				ws, err := mgr.SuggestWorkflow(e.Name, rt.patterns)
				if err != nil {
					return outputError(err)
				}
				text += "\n" + format.Workflow(ws)
			}
			return output(c, e, text)
		},
	}
}

// rebuildCmd creates the rebuild command.
func rebuildCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "rebuild",
		Usage: "Reparse every source and rewrite the corpus and index caches",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of markdown"},
		},
		Action: func(c *cli.Context) error {
			errw := c.App.ErrWriter
			rt.progress = func(ev manager.ProgressEvent) {
				printProgress(errw, ev)
			}
			mgr := rt.manager()
			if err := mgr.Rebuild(c.Context); err != nil {
				return outputError(err)
			}
			st, err := mgr.Stats()
			if err != nil {
				return outputError(err)
			}
			return output(c, st, format.Stats(st))
		},
	}
}

// Helper functions

func printProgress(w io.Writer, ev manager.ProgressEvent) {
	if w == nil {
		return
	}
	switch {
	case ev.Error != nil:
		fmt.Fprintf(w, "%s: %v\n", ev.Type, ev.Error)
	case ev.Total > 0:
		fmt.Fprintf(w, "%s %d/%d\n", ev.Type, ev.Completed, ev.Total)
	default:
		fmt.Fprintf(w, "%s\n", ev.Type)
	}
}

// output writes text, or v as JSON when --json is set.
func output(c *cli.Context, v any, text string) error {
	if c.Bool("json") {
		return outputJSON(c.App.Writer, v)
	}
	_, err := io.WriteString(c.App.Writer, text)
	return err
}

// outputJSON marshals v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var dErr *errors.DocsError
	if stderrors.As(err, &dErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
