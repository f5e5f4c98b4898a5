package qa

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
)

// exportLine is the wire shape of one exported record. Exports always use
// the prompt/completion spelling regardless of what the source file used.
type exportLine struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// exportable returns the records eligible for export, in original file
// order. Soft-deleted records are dropped; records hidden by the reviewer's
// confirmed filter are kept (hiding is a display filter, not a mutation).
func exportable(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.IsDeleted {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IndexInFile < out[j].IndexInFile
	})
	return out
}

// WriteJSONL streams records as JSONL, one {"prompt","completion"} object
// per line.
func WriteJSONL(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for _, r := range exportable(records) {
		if err := enc.Encode(exportLine{Prompt: r.Prompt, Completion: r.Completion}); err != nil {
			return fmt.Errorf("encode record %d: %w", r.IndexInFile, err)
		}
	}
	return nil
}

// WriteXLSX writes records as a single-sheet workbook with a header row and
// one row per record, numbered by original file position.
func WriteXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "QA Pairs"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := []interface{}{"#", "Prompt", "Completion"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range exportable(records) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.IndexInFile + 1, r.Prompt, r.Completion}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportFilename derives the download filename from the original upload
// name: the extension is replaced and an _edited suffix is added.
func ExportFilename(original, format string) string {
	stem := original
	for i := len(original) - 1; i >= 0; i-- {
		if original[i] == '.' {
			stem = original[:i]
			break
		}
		if original[i] == '/' || original[i] == '\\' {
			break
		}
	}
	ext := format
	if format == "excel" {
		ext = "xlsx"
	}
	return fmt.Sprintf("%s_edited.%s", stem, ext)
}
