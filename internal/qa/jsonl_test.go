package qa

import (
	"strings"
	"testing"
)

func TestParseJSONL(t *testing.T) {
	input := `{"prompt": "p0", "completion": "c0"}
{"question": "p1", "answer": "c1"}

{"prompt": "p2", "completion": "c2"}
`
	records, err := ParseJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseJSONL failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	for i, rec := range records {
		if rec.IndexInFile != i {
			t.Errorf("record %d: index_in_file = %d", i, rec.IndexInFile)
		}
		if rec.ID != TempID(i) {
			t.Errorf("record %d: id = %q", i, rec.ID)
		}
	}
	if records[1].Prompt != "p1" || records[1].Completion != "c1" {
		t.Errorf("question/answer aliases not mapped: %+v", records[1])
	}
}

func TestParseJSONLBadLine(t *testing.T) {
	input := `{"prompt": "p0", "completion": "c0"}
not json at all
{"prompt": "p2", "completion": "c2"}`

	records, err := ParseJSONL(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the offending line: %v", err)
	}
	if records != nil {
		t.Error("no partial record set should be returned on failure")
	}
}

func TestParseJSONLEmpty(t *testing.T) {
	records, err := ParseJSONL(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("blank input should parse: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

// Exporting and re-parsing the output yields the same pairs: deleted records
// are dropped, hidden-but-not-deleted records are kept.
func TestExportRoundTrip(t *testing.T) {
	records := []Record{
		{ID: "a", IndexInFile: 0, Prompt: "p0", Completion: "c0"},
		{ID: "b", IndexInFile: 1, Prompt: "p1", Completion: "c1", IsDeleted: true},
		{ID: "c", IndexInFile: 2, Prompt: "p2", Completion: "c2"},
	}

	var buf strings.Builder
	if err := WriteJSONL(&buf, records); err != nil {
		t.Fatalf("WriteJSONL failed: %v", err)
	}

	parsed, err := ParseJSONL(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 exported records, got %d", len(parsed))
	}
	if parsed[0].Prompt != "p0" || parsed[1].Prompt != "p2" {
		t.Errorf("deleted record leaked into export: %+v", parsed)
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		original string
		format   string
		want     string
	}{
		{"data.jsonl", "jsonl", "data_edited.jsonl"},
		{"data.jsonl", "excel", "data_edited.xlsx"},
		{"noext", "jsonl", "noext_edited.jsonl"},
		{"dir.v2/file.jsonl", "jsonl", "dir.v2/file_edited.jsonl"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.original, tt.format); got != tt.want {
			t.Errorf("ExportFilename(%q, %q) = %q, want %q", tt.original, tt.format, got, tt.want)
		}
	}
}

func TestAssignmentRange(t *testing.T) {
	a := Assignment{UserID: "u1", StartIndex: 0, EndIndex: 5}
	b := Assignment{UserID: "u2", StartIndex: 6, EndIndex: 9}

	if a.Count() != 6 || b.Count() != 4 {
		t.Errorf("counts = %d, %d", a.Count(), b.Count())
	}
	if a.Overlaps(b) {
		t.Error("adjacent ranges should not overlap")
	}
	if !a.Overlaps(Assignment{StartIndex: 5, EndIndex: 7}) {
		t.Error("intersecting ranges should overlap")
	}
	if !a.Contains(0) || !a.Contains(5) || a.Contains(6) {
		t.Error("Contains boundary check failed")
	}
}
