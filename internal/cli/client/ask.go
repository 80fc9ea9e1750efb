package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id,omitempty"`
	Message    string `json:"message"`
	UserType   string `json:"user_type,omitempty"`
	K          int    `json:"k,omitempty"`
}

type chatDelta struct {
	Text string `json:"text"`
}

type chatError struct {
	Error   string `json:"error"`
	Partial string `json:"partial"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask a question",
		Long: `Sends a message in the current session and streams the answer to stdout.
With --document the answer is grounded in that document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), k)
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of document chunks to retrieve (server default when 0)")

	return cmd
}

func runAsk(cmd *cobra.Command, message string, k int) error {
	sessionID, err := ResolveSessionID(cmd)
	if err != nil {
		return err
	}

	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	userType, _ := cmd.Flags().GetString("user-type")
	req := ChatRequest{
		SessionID:  sessionID,
		DocumentID: documentFlag(cmd),
		Message:    message,
		UserType:   userType,
		K:          k,
	}

	out := cmd.OutOrStdout()
	var streamErr error
	err = api.Stream(cmd.Context(), "/chat", req, func(ev Event) error {
		switch ev.Name {
		case "delta":
			var d chatDelta
			if err := json.Unmarshal(ev.Data, &d); err != nil {
				return fmt.Errorf("failed to parse delta: %w", err)
			}
			fmt.Fprint(out, d.Text)
		case "done":
			fmt.Fprintln(out)
		case "error":
			var e chatError
			if err := json.Unmarshal(ev.Data, &e); err != nil {
				return fmt.Errorf("failed to parse error event: %w", err)
			}
			fmt.Fprintln(out)
			streamErr = errors.New(e.Error)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	if streamErr != nil {
		return fmt.Errorf("answer incomplete: %w", streamErr)
	}
	return nil
}
