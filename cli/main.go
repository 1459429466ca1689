// Command safebite-cli is a smoke-test client for the SafeBite API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/roshaninfordham/safebiteai/internal/domain"
)

var apiBase string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "safebite-cli",
		Short:         "Client for the SafeBite agent API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", envOr("API_BASE", "http://localhost:8000"), "API base URL")

	root.AddCommand(newSmokeCmd(), newHealthCmd())
	return root
}

func newSmokeCmd() *cobra.Command {
	var (
		barcode string
		text    string
		mode    string
		useWS   bool
		quiet   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Start a run and stream it until the final report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			req := domain.RunRequest{InputType: domain.InputTypeBarcode, Barcode: barcode, Mode: domain.RunMode(mode)}
			if text != "" {
				req = domain.RunRequest{InputType: domain.InputTypeText, RawText: text, Mode: domain.RunMode(mode)}
			}

			client := NewClient(apiBase, &http.Client{})
			sessionID, err := client.StartRun(ctx, req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session: %s\n", sessionID)

			show := func(f Frame) {
				if !quiet {
					fmt.Fprintf(out, "event: %s\ndata: %s\n\n", f.Event, f.Data)
				}
			}

			stream := client.StreamSSE
			if useWS {
				stream = client.StreamWS
			}
			report, err := stream(ctx, sessionID, show)
			if err != nil {
				return err
			}

			summary, _ := json.MarshalIndent(map[string]interface{}{
				"product_name": report.ProductName,
				"safety_score": report.SafetyScore,
				"safety_flag":  report.SafetyFlag,
			}, "", "  ")
			fmt.Fprintf(out, "%s\nSmoke test passed\n", summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&barcode, "barcode", "0123456789", "barcode to look up")
	cmd.Flags().StringVar(&text, "text", "", "free-text item instead of a barcode")
	cmd.Flags().StringVar(&mode, "mode", "", "pipeline override (local|agent)")
	cmd.Flags().BoolVar(&useWS, "ws", false, "stream over WebSocket instead of SSE")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the summary")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall timeout")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API health",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, apiBase+"/health", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode health: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(body)
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
