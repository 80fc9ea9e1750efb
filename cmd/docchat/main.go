package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docchat/internal/cli"
	"github.com/cloo-solutions/docchat/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "Docchat CLI - chat with your documents",
		Long: `Docchat CLI indexes documents and streams grounded answers from a docchat server.

Environment variables:
  DOCCHAT_API_URL      API base URL (default: http://localhost:8080)
  DOCCHAT_SESSION_ID   Session to continue (default: saved in the user config)`,
		Version:      version,
		SilenceUsage: true,
	}

	client.AddPersistentFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.ClearCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.StatusCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
