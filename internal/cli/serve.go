package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sprite-ai/prgate/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the review-policy engine.

Endpoints:
  GET  /health                 — Health check
  POST /api/v1/check_reviews   — Evaluate a pull request
  GET  /api/v1/ws              — WebSocket streaming evaluation logs`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "127.0.0.1", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 6143, "port to listen on")
	serveCmd.Flags().String("owner", "", "only accept requests for this repository owner")
	serveCmd.Flags().String("token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")
	owner, _ := cmd.Flags().GetString("owner")

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("a GitHub token is required (--token or $GITHUB_TOKEN)")
	}

	listen := fmt.Sprintf("%s:%d", addr, port)
	srv := api.New(listen, owner, token)
	return srv.ListenAndServe()
}
