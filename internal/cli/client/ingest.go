package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// IngestRequest is the POST /documents body.
type IngestRequest struct {
	ID    string `json:"id,omitempty"`
	Text  string `json:"text"`
	Async bool   `json:"async,omitempty"`
}

// DocumentSummary is the indexed document returned by the API.
type DocumentSummary struct {
	ID            string `json:"id"`
	ChunkCount    int    `json:"chunk_count"`
	DroppedChunks int    `json:"dropped_chunks"`
	TextLength    int    `json:"text_length"`
	IndexedAt     string `json:"indexed_at"`
}

// IngestAccepted is returned for asynchronous ingests.
type IngestAccepted struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Index a text document",
		Long: `Uploads a plain-text file and indexes it for grounded chat. Use "-" to read
from stdin. The document ID comes from --document, or is generated by the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], async)
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "Queue the document for background indexing")

	return cmd
}

func runIngest(cmd *cobra.Command, path string, async bool) error {
	text, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(cmd.Context(), "/documents", IngestRequest{
		ID:    documentFlag(cmd),
		Text:  text,
		Async: async,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON(cmd) {
		return printJSON(out, resp.Data)
	}

	if async {
		var accepted IngestAccepted
		if err := json.Unmarshal(resp.Data, &accepted); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Fprintf(out, "Queued document %s (job %s)\n", accepted.DocumentID, accepted.JobID)
		return nil
	}

	var doc DocumentSummary
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	fmt.Fprintf(out, "Indexed document %s: %d chunks", doc.ID, doc.ChunkCount)
	if doc.DroppedChunks > 0 {
		fmt.Fprintf(out, " (%d dropped)", doc.DroppedChunks)
	}
	fmt.Fprintln(out)
	return nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
