package summary

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lundberg/diffweb/internal/diff"
)

func init() {
	// Plain output keeps assertions independent of the terminal.
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestRender(t *testing.T) {
	resp := diff.NewResponse("a1b2c3d..e4f5a6b", []diff.DiffFile{
		{Filename: "main.go", Status: diff.StatusModified, Additions: 3, Deletions: 1},
		{Filename: "new.go", OldFilename: "old.go", Status: diff.StatusRenamed, Additions: 1},
		{Filename: "logo.png", Status: diff.StatusAdded, IsBinary: true, IsImage: true},
	})

	want := "a1b2c3d..e4f5a6b\n" +
		"3 files changed, +4 -1\n" +
		"  M main.go +3 -1\n" +
		"  R old.go → new.go +1 -0\n" +
		"  A logo.png (binary)\n"
	assert.Equal(t, want, Render(resp))
}

func TestRenderEmpty(t *testing.T) {
	resp := diff.NewResponse("Working Directory (unstaged changes)", nil)
	assert.Equal(t, "Working Directory (unstaged changes)\nNo changes\n", Render(resp))
}

func TestRenderTruncates(t *testing.T) {
	var files []diff.DiffFile
	for i := 0; i < maxFiles+3; i++ {
		files = append(files, diff.DiffFile{Filename: fmt.Sprintf("f%d.txt", i), Status: diff.StatusAdded, Additions: 1})
	}
	out := Render(diff.NewResponse("x", files))
	assert.Contains(t, out, "23 files changed, +23 -0")
	assert.Contains(t, out, "... and 3 more")
	assert.NotContains(t, out, "f20.txt")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, diff.NewResponse("x", []diff.DiffFile{{Filename: "a", Status: diff.StatusDeleted, Deletions: 2}})))
	assert.Equal(t, "x\n1 file changed, +0 -2\n  D a +0 -2\n", buf.String())
}
