package diff

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/rs/zerolog/log"
)

// placeholderIndex stands in for the blob hashes git would print. It only
// has to look like an index line.
const placeholderIndex = "index 0000000..0000000"

// Synthesize renders every readable path in fsys as a newly added file in
// unified diff form. Unreadable paths are logged and left out.
func Synthesize(fsys fs.FS, paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unreadable file in synthetic diff")
			continue
		}
		writeAddedFile(&b, p, string(data))
	}
	return b.String()
}

func writeAddedFile(b *strings.Builder, name, content string) {
	var lines []string
	if content != "" {
		lines = strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	}

	fmt.Fprintf(b, "diff --git a/%s b/%s\n", name, name)
	b.WriteString("new file mode 100644\n")
	b.WriteString(placeholderIndex + "\n")
	b.WriteString("--- /dev/null\n")
	fmt.Fprintf(b, "+++ b/%s\n", name)
	fmt.Fprintf(b, "@@ -0,0 +1,%d @@\n", len(lines))
	for _, line := range lines {
		b.WriteString("+")
		b.WriteString(line)
		b.WriteString("\n")
	}
}
