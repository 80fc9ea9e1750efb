package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	Index int     `json:"index"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	DocumentID string         `json:"document_id"`
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a document",
		Long:  "Ranks the chunks of --document by similarity to the query.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), k)
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "Maximum number of results (server default when 0)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, k int) error {
	documentID := documentFlag(cmd)
	if documentID == "" {
		return fmt.Errorf("--document is required")
	}

	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(cmd.Context(), "/documents/"+url.PathEscape(documentID)+"/search", SearchRequest{Query: query, K: k})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON(cmd) {
		return printJSON(out, resp.Data)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if len(searchResp.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Fprintf(out, "%d. chunk %d [%d:%d] (%.3f)\n", i+1, result.Index, result.Start, result.End, result.Score)
		text := []rune(strings.Join(strings.Fields(result.Text), " "))
		if len(text) > 100 {
			text = append(text[:97], []rune("...")...)
		}
		fmt.Fprintf(out, "   %s\n", string(text))
	}
	return nil
}
