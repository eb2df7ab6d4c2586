// Package git runs the git command line against a working tree.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrFlagLikeRef is returned for refs that git would read as options.
var ErrFlagLikeRef = errors.New("ref must not start with '-'")

// Commit represents a single git commit.
type Commit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// Status lists the paths git status reports, relative to the repo root.
type Status struct {
	Modified  []string `json:"modified"`
	Untracked []string `json:"untracked"`
}

// Paths returns modified paths followed by untracked ones.
func (s *Status) Paths() []string {
	paths := make([]string, 0, len(s.Modified)+len(s.Untracked))
	paths = append(paths, s.Modified...)
	return append(paths, s.Untracked...)
}

// Repo represents a git repository at a specific directory.
type Repo struct {
	Dir string
}

// NewRepo creates a Repo pointing at the given directory.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir}
}

// run executes git in the repo directory and returns raw stdout.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	log.Debug().
		Strs("args", args).
		Dur("took", time.Since(start)).
		Bool("ok", err == nil).
		Msg("git")

	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// git runs git and returns trimmed stdout.
func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	out, err := r.run(ctx, args...)
	return strings.TrimSpace(out), err
}

func validateRefs(refs ...string) error {
	for _, ref := range refs {
		if strings.HasPrefix(ref, "-") {
			return fmt.Errorf("%q: %w", ref, ErrFlagLikeRef)
		}
	}
	return nil
}

// ResolveRef returns the full commit hash ref points at.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	if err := validateRefs(ref); err != nil {
		return "", err
	}
	return r.git(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
}

// Diff returns unified diff text with three lines of context. args select
// what is compared and are passed through after the fixed options.
func (r *Repo) Diff(ctx context.Context, args ...string) (string, error) {
	for _, a := range args {
		if strings.HasPrefix(a, "-") && !isDiffOption(a) {
			return "", fmt.Errorf("%q: %w", a, ErrFlagLikeRef)
		}
	}
	full := append([]string{"diff", "--no-ext-diff", "--no-color", "--unified=3"}, args...)
	return r.run(ctx, append(full, "--")...)
}

var diffOptions = map[string]bool{
	"--cached":           true,
	"--ignore-all-space": true,
}

func isDiffOption(a string) bool {
	return diffOptions[a]
}

// Status reports modified tracked paths and untracked paths.
func (r *Repo) Status(ctx context.Context) (*Status, error) {
	out, err := r.run(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// parseStatus reads NUL-separated porcelain v1 records. Rename and copy
// records are followed by their source path, which is skipped.
func parseStatus(out string) *Status {
	st := &Status{}
	records := strings.Split(out, "\x00")
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 4 {
			continue
		}
		code, path := rec[:2], rec[3:]
		switch {
		case code == "??":
			st.Untracked = append(st.Untracked, path)
		case code == "!!":
		default:
			if code[0] == 'R' || code[0] == 'C' {
				i++
			}
			if code[0] == 'D' || code[1] == 'D' {
				continue
			}
			st.Modified = append(st.Modified, path)
		}
	}
	return st
}

// Files returns the working tree as a filesystem rooted at the top level
// of the repository, matching the paths Status reports.
func (r *Repo) Files(ctx context.Context) (fs.FS, error) {
	top, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	return os.DirFS(top), nil
}

// GetMainBranch returns "main" or "master", whichever exists as a local branch.
func (r *Repo) GetMainBranch(ctx context.Context) (string, error) {
	for _, name := range []string{"main", "master"} {
		if _, err := r.git(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("neither 'main' nor 'master' branch found")
}

// GetMergeBase returns the merge-base commit hash between two refs.
func (r *Repo) GetMergeBase(ctx context.Context, ref1, ref2 string) (string, error) {
	if err := validateRefs(ref1, ref2); err != nil {
		return "", err
	}
	return r.git(ctx, "merge-base", ref1, ref2)
}

// GetCommits returns the most recent n commits for the current branch.
func (r *Repo) GetCommits(ctx context.Context, n int) ([]Commit, error) {
	// A repository without commits has no log.
	if _, err := r.ResolveRef(ctx, "HEAD"); err != nil {
		return nil, nil
	}

	// Use a separator unlikely to appear in commit messages
	sep := "\x1f"
	format := strings.Join([]string{"%H", "%s", "%an", "%ai"}, sep)
	out, err := r.git(ctx, "log", "--format="+format, "-n", strconv.Itoa(n))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, sep, 4)
		if len(parts) != 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    parts[0],
			Message: parts[1],
			Author:  parts[2],
			Date:    parts[3],
		})
	}
	return commits, nil
}
