// Package compare decides what a target/base pair compares and turns the
// resulting git output into a parsed diff.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Target tokens that name something other than a commit.
const (
	TargetWorking = "working"
	TargetStaged  = "staged"
	TargetAll     = "."
)

const (
	labelWorking  = "Working Directory (unstaged changes)"
	labelNoCommit = "Working Directory (all files)"

	ignoreWhitespaceFlag = "--ignore-all-space"
	shortHashLen         = 7
)

var (
	// ErrInvalidArgument reports an empty target or base.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrReferenceResolution reports a ref git could not resolve.
	ErrReferenceResolution = errors.New("reference resolution failed")
)

// RefResolver resolves a ref to a full commit hash.
type RefResolver interface {
	ResolveRef(ctx context.Context, ref string) (string, error)
}

// Plan is what a comparison resolves to: a label for display and the
// arguments for the diff. Synthetic plans have no arguments; the diff is
// built from the working tree instead.
type Plan struct {
	Label     string
	Args      []string
	Synthetic bool
}

// IsSpecialTarget reports whether target is one of the working tree tokens.
func IsSpecialTarget(target string) bool {
	switch target {
	case TargetWorking, TargetStaged, TargetAll:
		return true
	}
	return false
}

// Resolve works out what comparing target against base means.
func Resolve(ctx context.Context, refs RefResolver, target, base string, ignoreWhitespace bool) (*Plan, error) {
	target = strings.TrimSpace(target)
	base = strings.TrimSpace(base)
	if target == "" {
		return nil, fmt.Errorf("%w: target must not be empty", ErrInvalidArgument)
	}
	if base == "" {
		return nil, fmt.Errorf("%w: base must not be empty", ErrInvalidArgument)
	}

	plan, err := resolve(ctx, refs, target, base)
	if err != nil {
		return nil, err
	}
	if ignoreWhitespace && !plan.Synthetic {
		plan.Args = append(plan.Args, ignoreWhitespaceFlag)
	}
	return plan, nil
}

func resolve(ctx context.Context, refs RefResolver, target, base string) (*Plan, error) {
	switch target {
	case TargetWorking:
		return &Plan{Label: labelWorking, Args: []string{}}, nil

	case TargetStaged:
		baseHash, err := resolveRef(ctx, refs, base)
		if err != nil {
			return nil, err
		}
		return &Plan{
			Label: short(baseHash) + " vs Staging Area (staged changes)",
			Args:  []string{"--cached", base},
		}, nil

	case TargetAll:
		baseHash, err := resolveRef(ctx, refs, base)
		if err != nil {
			// No history yet: everything on disk is new.
			return &Plan{Label: labelNoCommit, Synthetic: true}, nil
		}
		return &Plan{
			Label: short(baseHash) + " vs Working Directory (all uncommitted changes)",
			Args:  []string{base},
		}, nil
	}

	targetHash, err := resolveRef(ctx, refs, target)
	if err != nil {
		return nil, err
	}
	baseHash, err := resolveRef(ctx, refs, base)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Label: short(baseHash) + ".." + short(targetHash),
		Args:  []string{baseHash, targetHash},
	}, nil
}

func resolveRef(ctx context.Context, refs RefResolver, ref string) (string, error) {
	hash, err := refs.ResolveRef(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReferenceResolution, ref, err)
	}
	return hash, nil
}

func short(hash string) string {
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}
	return hash
}
