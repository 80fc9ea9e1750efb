package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Turn is one stored message.
type Turn struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// History is the GET /sessions/{id}/history response.
type History struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id,omitempty"`
	Turns      []Turn `json:"turns"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history",
		Long:  "Prints the turns stored for the current session, scoped to --document when given.",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	sessionID, err := ResolveSessionID(cmd)
	if err != nil {
		return err
	}

	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(cmd.Context(), sessionPath(sessionID, documentFlag(cmd), "/history"))
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON(cmd) {
		return printJSON(out, resp.Data)
	}

	var history History
	if err := json.Unmarshal(resp.Data, &history); err != nil {
		return fmt.Errorf("failed to parse history: %w", err)
	}
	if len(history.Turns) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return nil
	}
	for _, t := range history.Turns {
		fmt.Fprintf(out, "[%s] %s\n\n", t.Role, t.Text)
	}
	return nil
}

// ClearCmd creates the clear command.
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation history",
		Long:  "Drops the turns stored for the current session, scoped to --document when given.",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}
}

func runClear(cmd *cobra.Command, args []string) error {
	sessionID, err := ResolveSessionID(cmd)
	if err != nil {
		return err
	}

	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete(cmd.Context(), sessionPath(sessionID, documentFlag(cmd), "")); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared session %s\n", sessionID)
	return nil
}
