package diff

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiffResponseJSON(t *testing.T) {
	tests := []struct {
		name string
		resp *DiffResponse
		want string
	}{
		{
			name: "empty response reports isEmpty",
			resp: NewResponse("a1b2c3d..e4f5a6b", nil),
			want: `{"files":[],"commit":"a1b2c3d..e4f5a6b","isEmpty":true}`,
		},
		{
			name: "rename annotation is emitted",
			resp: NewResponse("x", []DiffFile{{Filename: "new.go", OldFilename: "old.go", Status: StatusRenamed}}),
			want: `{"files":[{"filename":"new.go","oldFilename":"old.go","status":"renamed","additions":0,"deletions":0,"chunks":[],"isBinary":false,"isImage":false}],"commit":"x","isEmpty":false}`,
		},
		{
			name: "rename to the same path drops the annotation",
			resp: NewResponse("x", []DiffFile{{Filename: "same.go", OldFilename: "same.go", Status: StatusRenamed}}),
			want: `{"files":[{"filename":"same.go","status":"renamed","additions":0,"deletions":0,"chunks":[],"isBinary":false,"isImage":false}],"commit":"x","isEmpty":false}`,
		},
		{
			name: "line numbers are omitted on the missing side",
			resp: NewResponse("x", []DiffFile{{
				Filename:  "f",
				Status:    StatusModified,
				Additions: 1,
				Deletions: 1,
				Chunks: []DiffChunk{{
					OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
					Header: "@@ -1 +1 @@",
					Lines: []DiffLine{
						{Type: LineDeleted, Content: "a", OldLineNumber: 1},
						{Type: LineAdded, Content: "b", NewLineNumber: 1},
					},
				}},
			}}),
			want: `{"files":[{"filename":"f","status":"modified","additions":1,"deletions":1,"chunks":[{"oldStart":1,"oldLines":1,"newStart":1,"newLines":1,"header":"@@ -1 +1 @@","lines":[{"type":"deleted","content":"a","oldLineNumber":1},{"type":"added","content":"b","newLineNumber":1}]}],"isBinary":false,"isImage":false}],"commit":"x","isEmpty":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if d := cmp.Diff(tt.want, string(got)); d != "" {
				t.Errorf("JSON mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestParseResponseTwoFiles(t *testing.T) {
	raw := `diff --git a/added.txt b/added.txt
new file mode 100644
index 0000000..1234567
--- /dev/null
+++ b/added.txt
@@ -0,0 +1 @@
+hello
diff --git a/mod.txt b/mod.txt
index 1234567..abcdef0 100644
--- a/mod.txt
+++ b/mod.txt
@@ -1,3 +1,3 @@
 keep
-old
+new
 keep too
`
	resp := ParseResponse("HEAD~1..HEAD", raw)
	if resp.IsEmpty() {
		t.Fatal("expected a non-empty response")
	}
	if len(resp.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(resp.Files))
	}
	if resp.Files[0].Status != StatusAdded {
		t.Errorf("files[0].Status = %q, want added", resp.Files[0].Status)
	}
	mod := resp.Files[1]
	if mod.Additions != 1 || mod.Deletions != 1 {
		t.Errorf("modified file counts = +%d -%d, want +1 -1", mod.Additions, mod.Deletions)
	}
}
