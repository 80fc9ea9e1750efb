package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/cloo-solutions/docchat/internal/cli"
	"github.com/spf13/cobra"
)

// AddPersistentFlags registers the flags shared by every client command.
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	root.PersistentFlags().String("session", "", "Session ID (overrides env and config)")
	root.PersistentFlags().String("document", "", "Document ID to ground answers in")
	root.PersistentFlags().String("user-type", "", "Response style: student, teacher, researcher or general")
	cli.BindEnv(root.PersistentFlags(), "api-url", envAPIURL)
	cli.BindEnv(root.PersistentFlags(), "session", envSessionID)
}

func sessionPath(sessionID, documentID, suffix string) string {
	path := "/sessions/" + url.PathEscape(sessionID) + suffix
	if documentID != "" {
		path += "?" + url.Values{"document_id": {documentID}}.Encode()
	}
	return path
}

func documentFlag(cmd *cobra.Command) string {
	documentID, _ := cmd.Flags().GetString("document")
	return documentID
}

func outputJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("output")
	return asJSON
}

func printJSON(w io.Writer, data json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}
