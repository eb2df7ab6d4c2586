package diff

import "encoding/json"

// FileStatus classifies how a file changed.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
)

// LineType classifies a single line within a chunk.
type LineType string

const (
	LineContext LineType = "context"
	LineAdded   LineType = "added"
	LineDeleted LineType = "deleted"
)

// DiffResponse is the result of parsing one comparison.
type DiffResponse struct { //nolint:revive // exported as the API contract
	Files  []DiffFile `json:"files"`
	Commit string     `json:"commit"`
}

// NewResponse builds a response for the given comparison label.
func NewResponse(commit string, files []DiffFile) *DiffResponse {
	if files == nil {
		files = []DiffFile{}
	}
	return &DiffResponse{Files: files, Commit: commit}
}

// ParseResponse parses raw unified diff text into a response labelled commit.
func ParseResponse(commit, raw string) *DiffResponse {
	return NewResponse(commit, Parse(raw))
}

// IsEmpty reports whether the comparison produced no files.
func (r DiffResponse) IsEmpty() bool {
	return len(r.Files) == 0
}

// MarshalJSON adds the derived isEmpty field.
func (r DiffResponse) MarshalJSON() ([]byte, error) {
	files := r.Files
	if files == nil {
		files = []DiffFile{}
	}
	return json.Marshal(struct {
		Files   []DiffFile `json:"files"`
		Commit  string     `json:"commit"`
		IsEmpty bool       `json:"isEmpty"`
	}{files, r.Commit, len(files) == 0})
}

// DiffFile is the change to a single file.
type DiffFile struct {
	Filename    string      `json:"filename"`
	OldFilename string      `json:"oldFilename,omitempty"`
	Status      FileStatus  `json:"status"`
	Additions   int         `json:"additions"`
	Deletions   int         `json:"deletions"`
	Chunks      []DiffChunk `json:"chunks"`
	IsBinary    bool        `json:"isBinary"`
	IsImage     bool        `json:"isImage"`
}

// MarshalJSON drops the rename annotation when it carries no information.
func (f DiffFile) MarshalJSON() ([]byte, error) {
	type plain DiffFile
	out := plain(f)
	if out.Status != StatusRenamed || out.OldFilename == out.Filename {
		out.OldFilename = ""
	}
	if out.Chunks == nil {
		out.Chunks = []DiffChunk{}
	}
	return json.Marshal(out)
}

// DiffChunk is one @@ hunk.
type DiffChunk struct {
	OldStart int        `json:"oldStart"`
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"`
	NewLines int        `json:"newLines"`
	Header   string     `json:"header"`
	Lines    []DiffLine `json:"lines"`
}

// DiffLine is a single line within a chunk. Added lines carry no old
// number and deleted lines carry no new number.
type DiffLine struct {
	Type          LineType `json:"type"`
	Content       string   `json:"content"`
	OldLineNumber int      `json:"oldLineNumber,omitempty"`
	NewLineNumber int      `json:"newLineNumber,omitempty"`
}
