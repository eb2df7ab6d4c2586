// Package diff parses unified diff output into structured types.
package diff

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	blockSplitRe = regexp.MustCompile(`(?m)^diff --git `)
	fileHeaderRe = regexp.MustCompile(`^a/(.+) b/(.+)$`)
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	binaryRe     = regexp.MustCompile(`^Binary files .* differ$`)
)

var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
	"svg":  true,
	"webp": true,
}

// statusMarkers is ordered by precedence: the first marker present in a
// block decides its status.
var statusMarkers = []struct {
	prefix string
	status FileStatus
}{
	{"new file mode", StatusAdded},
	{"deleted file mode", StatusDeleted},
	{"rename from", StatusRenamed},
}

// Parse parses unified diff text into one DiffFile per recognized file
// block, in input order. Blocks whose header does not have the
// "a/<old> b/<new>" form are skipped.
func Parse(input string) []DiffFile {
	files := []DiffFile{}
	for _, block := range blockSplitRe.Split(input, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		file, ok := parseBlock(block)
		if !ok {
			continue
		}
		files = append(files, file)
	}
	return files
}

func parseBlock(block string) (DiffFile, bool) {
	lines := strings.Split(block, "\n")
	m := fileHeaderRe.FindStringSubmatch(lines[0])
	if m == nil {
		return DiffFile{}, false
	}
	oldPath, newPath := m[1], m[2]
	body := lines[1:]

	file := DiffFile{
		Filename: newPath,
		Status:   classify(body),
		Chunks:   []DiffChunk{},
	}
	switch file.Status {
	case StatusDeleted:
		file.Filename = oldPath
	case StatusRenamed:
		file.OldFilename = oldPath
	}

	if isBinary(body) {
		file.IsBinary = true
		file.IsImage = isImagePath(file.Filename)
		return file, true
	}

	file.Chunks = parseChunks(body)
	for _, chunk := range file.Chunks {
		for _, line := range chunk.Lines {
			switch line.Type {
			case LineAdded:
				file.Additions++
			case LineDeleted:
				file.Deletions++
			}
		}
	}
	return file, true
}

// classify scans the block once and returns the highest-precedence status
// whose marker appears.
func classify(lines []string) FileStatus {
	seen := make([]bool, len(statusMarkers))
	for _, line := range lines {
		for i, marker := range statusMarkers {
			if strings.HasPrefix(line, marker.prefix) {
				seen[i] = true
			}
		}
	}
	for i, marker := range statusMarkers {
		if seen[i] {
			return marker.status
		}
	}
	return StatusModified
}

func isBinary(lines []string) bool {
	for _, line := range lines {
		if binaryRe.MatchString(line) {
			return true
		}
	}
	return false
}

func isImagePath(name string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return imageExtensions[strings.ToLower(ext)]
}

// cursor carries the running old/new line numbers through a chunk.
type cursor struct {
	oldNum, newNum int
}

// next returns the line for the given marker numbered at the cursor,
// and the cursor advanced past it.
func (c cursor) next(typ LineType, content string) (DiffLine, cursor) {
	line := DiffLine{Type: typ, Content: content}
	if typ != LineAdded {
		line.OldLineNumber = c.oldNum
		c.oldNum++
	}
	if typ != LineDeleted {
		line.NewLineNumber = c.newNum
		c.newNum++
	}
	return line, c
}

// full reports whether the cursor has consumed every line chunk declares.
func (c cursor) full(chunk *DiffChunk) bool {
	return c.oldNum >= chunk.OldStart+chunk.OldLines && c.newNum >= chunk.NewStart+chunk.NewLines
}

// parseChunks folds content lines into chunks. A chunk stops taking lines
// once its declared counts are used up, so trailers such as a format-patch
// "-- " signature are not read as changes.
func parseChunks(lines []string) []DiffChunk {
	chunks := []DiffChunk{}
	var open *DiffChunk
	var pos cursor

	for _, line := range lines {
		if hm := hunkHeaderRe.FindStringSubmatch(line); hm != nil {
			if open != nil {
				chunks = append(chunks, *open)
			}
			chunk := newChunk(hm)
			open = &chunk
			pos = cursor{oldNum: chunk.OldStart, newNum: chunk.NewStart}
			continue
		}
		if open == nil || line == "" || pos.full(open) {
			continue
		}

		var typ LineType
		switch line[0] {
		case '+':
			typ = LineAdded
		case '-':
			typ = LineDeleted
		case ' ':
			typ = LineContext
		default:
			continue
		}

		var dl DiffLine
		dl, pos = pos.next(typ, line[1:])
		open.Lines = append(open.Lines, dl)
	}

	if open != nil {
		chunks = append(chunks, *open)
	}
	return chunks
}

// newChunk builds an empty chunk from a hunk header match. Omitted counts
// default to 1.
func newChunk(hm []string) DiffChunk {
	oldStart, _ := strconv.Atoi(hm[1])
	newStart, _ := strconv.Atoi(hm[3])
	chunk := DiffChunk{
		OldStart: oldStart,
		OldLines: countOrOne(hm[2]),
		NewStart: newStart,
		NewLines: countOrOne(hm[4]),
		Lines:    []DiffLine{},
	}

	header := "@@ -" + hm[1]
	if hm[2] != "" {
		header += "," + hm[2]
	}
	header += " +" + hm[3]
	if hm[4] != "" {
		header += "," + hm[4]
	}
	header += " @@"
	if funcCtx := strings.TrimSpace(hm[5]); funcCtx != "" {
		header += " " + funcCtx
	}
	chunk.Header = header
	return chunk
}

func countOrOne(s string) int {
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return n
}
