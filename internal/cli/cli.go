// Package cli handles command-line argument parsing and configuration.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	urfave "github.com/urfave/cli/v2"

	"github.com/lundberg/diffweb/internal/compare"
	"github.com/lundberg/diffweb/internal/config"
)

// ErrHelp is returned by ParseArgs when help or version output was requested.
var ErrHelp = errors.New("help requested")

// Version is reported by --version.
var Version = "0.1.0"

// Modes of operation.
const (
	ModeGit   = "git"
	ModeStdin = "stdin"
)

// Invocation is one fully parsed command line.
type Invocation struct {
	Mode     string // ModeGit or ModeStdin
	Target   string // what to show; a ref or one of working, staged, .
	Base     string // what to compare against
	Dir      string // repository directory
	Settings *config.Config
}

// RunFunc is called with the parsed invocation.
type RunFunc func(ctx context.Context, inv *Invocation) error

const helpTemplate = `Usage: {{.Name}} [flags] [target [base]]

{{.Usage}}

Arguments:
  (none)            compare HEAD with HEAD^
  <target>          compare <target> with <target>^
  <target> <base>   compare <target> with <base>
  working           unstaged changes
  staged            staged changes against <base> (default HEAD)
  .                 all uncommitted changes against <base> (default HEAD)
  -                 read a unified diff from stdin

Flags:
{{range .VisibleFlags}}  {{.}}
{{end}}`

// flagKeys maps flags to the config keys they override when set.
var flagKeys = map[string]string{
	"port":              "server.port",
	"host":              "server.host",
	"no-open":           "server.no_open",
	"mode":              "view.mode",
	"ignore-whitespace": "diff.ignore_whitespace",
	"merge-base":        "diff.merge_base",
	"watch":             "watch.enabled",
	"log-level":         "log.level",
}

// NewApp builds the command-line application. run is invoked once the
// arguments and configuration are valid.
func NewApp(run RunFunc) *urfave.App {
	return &urfave.App{
		Name:                  "diffweb",
		Usage:                 "Display git diffs in a GitHub-style web UI.",
		Version:               Version,
		HideHelpCommand:       true,
		CustomAppHelpTemplate: helpTemplate,
		Flags: []urfave.Flag{
			&urfave.IntFlag{Name: "port", Usage: "HTTP server port (0 = auto)"},
			&urfave.StringFlag{Name: "host", Usage: "HTTP server host", Value: "localhost"},
			&urfave.BoolFlag{Name: "no-open", Usage: "don't open browser automatically"},
			&urfave.StringFlag{Name: "mode", Usage: "view mode: split or unified", Value: "split"},
			&urfave.BoolFlag{Name: "ignore-whitespace", Aliases: []string{"w"}, Usage: "ignore whitespace changes"},
			&urfave.BoolFlag{Name: "merge-base", Usage: "compare against the merge-base of target and main/master"},
			&urfave.BoolFlag{Name: "watch", Usage: "track working tree changes for the UI to reload"},
			&urfave.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)", Value: "info"},
			&urfave.StringFlag{Name: "dir", Usage: "repository `DIR`", Value: "."},
			&urfave.PathFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE`"},
		},
		Action: func(c *urfave.Context) error {
			inv, err := invocation(c)
			if err != nil {
				return err
			}
			return run(c.Context, inv)
		},
	}
}

func invocation(c *urfave.Context) (*Invocation, error) {
	inv := &Invocation{Mode: ModeGit, Dir: c.String("dir")}

	args := c.Args().Slice()
	switch len(args) {
	case 0:
		inv.Target, inv.Base = "HEAD", "HEAD^"
	case 1:
		if args[0] == "-" {
			inv.Mode = ModeStdin
			break
		}
		inv.Target, inv.Base = args[0], defaultBase(args[0])
	case 2:
		inv.Target, inv.Base = args[0], args[1]
	default:
		return nil, fmt.Errorf("too many arguments: expected at most 2, got %d", len(args))
	}

	overrides := map[string]interface{}{}
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}
	settings, err := config.Load(c.Path("config"), inv.Dir, overrides)
	if err != nil {
		return nil, err
	}
	inv.Settings = settings
	return inv, nil
}

// defaultBase is what a lone target is compared with.
func defaultBase(target string) string {
	if compare.IsSpecialTarget(target) {
		return "HEAD"
	}
	return target + "^"
}

// ParseArgs parses command-line arguments (without the program name)
// into an Invocation. It does not execute git commands.
func ParseArgs(args []string) (*Invocation, error) {
	var got *Invocation
	app := NewApp(func(_ context.Context, inv *Invocation) error {
		got = inv
		return nil
	})
	app.Writer = io.Discard
	app.ErrWriter = io.Discard

	if err := app.Run(append([]string{app.Name}, args...)); err != nil {
		return nil, err
	}
	if got == nil {
		return nil, ErrHelp
	}
	return got, nil
}
