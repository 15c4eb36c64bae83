package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  GET  /healthz           liveness and whether documents are indexed
  POST /upload            multipart "file" (.txt or .pdf)
  POST /chat              {"question", "session_id"} answered in one piece
  POST /chat_stream       same request, plain-text answer streamed as generated
  POST /feedback          {"session_id", "question", "answer", "rating"}
  GET  /metrics/summary   request totals and the most recent records

Prompt template files are reloaded while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app.App) error {
		server, err := httpapi.NewServer(&httpapi.Ports{
			Ingest:   a.Ingest,
			Chat:     a.Chat,
			Metrics:  a.Metrics,
			Feedback: a.Feedback,
		}, httpapi.Config{
			UploadDir:      a.Settings.Server.UploadDir,
			MaxUploadMB:    a.Settings.Server.MaxUploadMB,
			RateLimitRPS:   a.Settings.Server.RateLimitRPS,
			RateLimitBurst: a.Settings.Server.RateLimitBurst,
			Retrieval:      a.Settings.Retrieval.Options(),
		})
		if err != nil {
			return err
		}

		go a.WatchPrompts(cmd.Context())

		addr := serveAddr
		if addr == "" {
			addr = a.Settings.Server.Addr
		}
		logger.Info("docqa %s listening on %s", version, addr)
		return server.Run(cmd.Context(), addr)
	})
}
