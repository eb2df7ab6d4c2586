// Package summary prints a short terminal overview of a parsed diff.
package summary

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lundberg/diffweb/internal/diff"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	addStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	delStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	statusLetter = map[diff.FileStatus]string{
		diff.StatusAdded:    "A",
		diff.StatusModified: "M",
		diff.StatusDeleted:  "D",
		diff.StatusRenamed:  "R",
	}
)

// maxFiles caps the per-file listing.
const maxFiles = 20

// Write renders resp to w.
func Write(w io.Writer, resp *diff.DiffResponse) error {
	_, err := io.WriteString(w, Render(resp))
	return err
}

// Render formats resp as a few lines of styled text.
func Render(resp *diff.DiffResponse) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(resp.Commit))
	b.WriteString("\n")

	if resp.IsEmpty() {
		b.WriteString(dimStyle.Render("No changes"))
		b.WriteString("\n")
		return b.String()
	}

	var adds, dels int
	for _, f := range resp.Files {
		adds += f.Additions
		dels += f.Deletions
	}
	noun := "files"
	if len(resp.Files) == 1 {
		noun = "file"
	}
	fmt.Fprintf(&b, "%d %s changed, %s %s\n",
		len(resp.Files), noun,
		addStyle.Render(fmt.Sprintf("+%d", adds)),
		delStyle.Render(fmt.Sprintf("-%d", dels)))

	for i, f := range resp.Files {
		if i == maxFiles {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more", len(resp.Files)-maxFiles)))
			b.WriteString("\n")
			break
		}
		b.WriteString("  ")
		b.WriteString(fileLine(f))
		b.WriteString("\n")
	}
	return b.String()
}

func fileLine(f diff.DiffFile) string {
	name := f.Filename
	if f.Status == diff.StatusRenamed && f.OldFilename != "" && f.OldFilename != f.Filename {
		name = f.OldFilename + " → " + f.Filename
	}
	line := statusLetter[f.Status] + " " + name
	if f.IsBinary {
		return line + " " + dimStyle.Render("(binary)")
	}
	return fmt.Sprintf("%s %s %s", line,
		addStyle.Render(fmt.Sprintf("+%d", f.Additions)),
		delStyle.Render(fmt.Sprintf("-%d", f.Deletions)))
}
