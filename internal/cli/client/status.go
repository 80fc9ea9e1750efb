package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// JobStatus is the GET /jobs/{id} response.
type JobStatus struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Status      string `json:"status"`
	Retries     int    `json:"retries"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show server, document or job status",
		Long: `Without arguments, checks the server and prints the current session and
the --document summary if one is set. With a job ID, prints that index job.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		resp, err := api.Get(cmd.Context(), "/jobs/"+url.PathEscape(args[0]))
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		if outputJSON(cmd) {
			return printJSON(out, resp.Data)
		}
		var job JobStatus
		if err := json.Unmarshal(resp.Data, &job); err != nil {
			return fmt.Errorf("failed to parse job: %w", err)
		}
		fmt.Fprintf(out, "Job %s: %s (document %s, retries %d)\n", job.ID, job.Status, job.DocumentID, job.Retries)
		if job.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", job.Error)
		}
		return nil
	}

	if _, err := api.Get(cmd.Context(), "/health"); err != nil {
		return fmt.Errorf("server unreachable at %s: %w", api.baseURL, err)
	}
	fmt.Fprintf(out, "Server: %s (ok)\n", api.baseURL)

	sessionID, err := ResolveSessionID(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session: %s\n", sessionID)

	documentID := documentFlag(cmd)
	if documentID == "" {
		return nil
	}
	resp, err := api.Get(cmd.Context(), "/documents/"+url.PathEscape(documentID))
	if err != nil {
		return fmt.Errorf("document lookup failed: %w", err)
	}
	var doc DocumentSummary
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	fmt.Fprintf(out, "Document: %s (%d chunks, indexed %s)\n", doc.ID, doc.ChunkCount, doc.IndexedAt)
	return nil
}
