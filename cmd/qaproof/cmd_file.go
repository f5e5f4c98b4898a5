package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qaproof/internal/editor"
)

var (
	filePage   int
	fileSearch string
	fileFormat string
)

// fileCmd covers the single-file workflow against the server
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Upload and edit a file on the server",
	Long: `Single-file proofreading against the server (requires sign-in).

Available subcommands:
  upload - Upload a JSONL file for editing
  show   - Print one page of a file's records
  export - Download the edited file
  rm     - Delete a file session

For local-only editing without an account, use 'qaproof review' instead.`,
}

var fileUploadCmd = &cobra.Command{
	Use:   "upload <file.jsonl>",
	Short: "Upload a JSONL file for editing",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileUpload,
}

var fileShowCmd = &cobra.Command{
	Use:   "show <file-id>",
	Short: "Print one page of a file's records",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileShow,
}

var fileExportCmd = &cobra.Command{
	Use:   "export <file-id>",
	Short: "Download the edited file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFileExport,
}

var fileRmCmd = &cobra.Command{
	Use:   "rm <file-id>",
	Short: "Delete a file session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := app.client.DeleteFile(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func runFileUpload(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	fs, err := app.client.UploadFile(cmd.Context(), filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %s: id=%s, %d records\n", fs.OriginalFilename, fs.ID, fs.TotalQAPairs)
	return nil
}

func runFileShow(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	e := newServerEditor()
	if err := e.Attach(cmd.Context(), args[0]); err != nil {
		return err
	}
	if fileSearch != "" {
		if err := e.SetSearch(cmd.Context(), fileSearch); err != nil {
			return err
		}
	}
	if err := e.SetPage(cmd.Context(), filePage); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPROMPT\tCOMPLETION\tFLAGS")
	for _, r := range e.Records() {
		flags := ""
		if r.IsEdited {
			flags += "edited "
		}
		if r.IsDeleted {
			flags += "deleted"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.IndexInFile+1, trim(r.Prompt, 40), trim(r.Completion, 40), flags)
	}
	w.Flush()
	fmt.Printf("Page %d/%d, %d records\n", e.Page(), e.PageCount(), e.Total())
	return nil
}

func runFileExport(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	blob, err := app.client.ExportFile(cmd.Context(), args[0], fileFormat, -1, -1)
	if err != nil {
		return err
	}
	name := blob.Filename
	if name == "" {
		name = "export." + fileFormat
	}
	if err := os.WriteFile(name, blob.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes)\n", name, len(blob.Data))
	return nil
}

// newServerEditor builds a server-mode editor backed by the local hidden
// store when the sqlite backend is in use.
func newServerEditor() *editor.Editor {
	var hidden editor.HiddenStore
	if app.local != nil {
		hidden = app.local
	}
	var userID string
	if u := app.auth.User(); u != nil {
		userID = u.ID
	}
	return editor.NewServerEditor(app.client, hidden, userID, app.cfg.Editor.PageSize)
}

func trim(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func init() {
	fileShowCmd.Flags().IntVar(&filePage, "page", 1, "page number")
	fileShowCmd.Flags().StringVar(&fileSearch, "search", "", "filter records by text")
	fileExportCmd.Flags().StringVar(&fileFormat, "format", "jsonl", "export format: jsonl or excel")

	fileCmd.AddCommand(fileUploadCmd)
	fileCmd.AddCommand(fileShowCmd)
	fileCmd.AddCommand(fileExportCmd)
	fileCmd.AddCommand(fileRmCmd)
}
