package qa

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// rawLine accepts both field spellings seen in the wild. Uploaded files use
// question/answer or prompt/completion interchangeably.
type rawLine struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// ParseJSONL reads a JSONL stream line by line and returns one Record per
// non-blank line. IndexInFile is the zero-based position among the parsed
// lines; record IDs are temporary client ids, replaced by server ids once a
// file is uploaded.
//
// A line that is not a valid JSON object fails the whole parse with an error
// naming the 1-based line number. No partial record set is returned.
func ParseJSONL(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}

		idx := len(records)
		rec := Record{
			ID:          TempID(idx),
			IndexInFile: idx,
			Prompt:      raw.Prompt,
			Completion:  raw.Completion,
		}
		if rec.Prompt == "" {
			rec.Prompt = raw.Question
		}
		if rec.Completion == "" {
			rec.Completion = raw.Answer
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return records, nil
}

// TempID builds the client-side temporary id for a record at the given
// ingest index. Server uploads replace these with server-issued ids.
func TempID(index int) string {
	return fmt.Sprintf("temp_%d", index)
}
