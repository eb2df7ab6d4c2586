// diffweb displays git diffs in a GitHub-style web UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lundberg/diffweb/internal/browser"
	"github.com/lundberg/diffweb/internal/cli"
	"github.com/lundberg/diffweb/internal/compare"
	"github.com/lundberg/diffweb/internal/diff"
	"github.com/lundberg/diffweb/internal/git"
	"github.com/lundberg/diffweb/internal/logging"
	"github.com/lundberg/diffweb/internal/server"
	"github.com/lundberg/diffweb/internal/summary"
	"github.com/lundberg/diffweb/internal/watcher"
	"github.com/lundberg/diffweb/web"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewApp(run).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, inv *cli.Invocation) error {
	settings := inv.Settings
	logging.Setup(os.Stderr, settings.Log.Level)

	repo := git.NewRepo(inv.Dir)
	svc := compare.NewService(repo)
	opts := server.Options{
		Target:           inv.Target,
		Base:             inv.Base,
		IgnoreWhitespace: settings.Diff.IgnoreWhitespace,
		ViewMode:         settings.View.Mode,
	}

	var (
		initial, stdinDiff *diff.DiffResponse
		err                error
	)
	switch inv.Mode {
	case cli.ModeStdin:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		stdinDiff = diff.ParseResponse("stdin", string(data))
		initial = stdinDiff

	default:
		if settings.Diff.MergeBase {
			base, err := mergeBase(ctx, repo, inv.Target)
			if err != nil {
				return err
			}
			opts.Base = base
		}
		// Fail before listening if the comparison can't be made.
		initial, err = svc.ParseDiff(ctx, opts.Target, opts.Base, opts.IgnoreWhitespace)
		if err != nil {
			return err
		}
	}
	if err := summary.Write(os.Stdout, initial); err != nil {
		return err
	}

	deps := server.Deps{Differ: svc, Commits: repo}
	var w *watcher.Watcher
	if settings.Watch.Enabled && stdinDiff == nil {
		w, err = watcher.New(inv.Dir, settings.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watching %s: %w", inv.Dir, err)
		}
		w.OnChange(func() {
			log.Info().Uint64("revision", w.Revision()).Msg("working tree changed")
		})
		deps.Revisions = w
	}

	// Listen on a port to get the actual address (handles port=0 auto-select)
	host := settings.Server.Host
	addr := net.JoinHostPort(host, strconv.Itoa(settings.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(actualPort)))

	fmt.Printf("Listening on %s\n", url)
	if host != "localhost" && host != "127.0.0.1" {
		log.Warn().Str("host", host).Msg("diffweb is not designed for public access. It exposes repository contents without authentication.")
	}
	fmt.Println("Press Ctrl+C to stop")

	if !settings.Server.NoOpen {
		if err := browser.Open(url); err != nil {
			log.Warn().Err(err).Msg("could not open browser")
		}
	}

	srv := server.New(opts, deps, stdinDiff, web.Assets)
	httpServer := &http.Server{Handler: srv.Handler()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// mergeBase returns the merge-base of target (HEAD for working tree
// targets) and the repository's main branch.
func mergeBase(ctx context.Context, repo *git.Repo, target string) (string, error) {
	mainBranch, err := repo.GetMainBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("detecting main branch: %w", err)
	}
	from := target
	if compare.IsSpecialTarget(target) {
		from = "HEAD"
	}
	base, err := repo.GetMergeBase(ctx, from, mainBranch)
	if err != nil {
		return "", fmt.Errorf("computing merge-base: %w", err)
	}
	log.Debug().Str("branch", mainBranch).Str("base", base).Msg("using merge-base")
	return base, nil
}
