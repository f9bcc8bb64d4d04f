package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusHost string
var statusPort int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the daemon's health endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("http://%s:%d/health", statusHost, statusPort)

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("daemon is not reachable at %s: %w", url, err)
		}
		defer resp.Body.Close()

		var health struct {
			Status           string  `json:"status"`
			Uptime           float64 `json:"uptime"`
			ActiveRecordings int     `json:"activeRecordings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("failed to decode health response: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", health.Status)
		fmt.Fprintf(cmd.OutOrStdout(), "uptime: %.0fs\n", health.Uptime)
		fmt.Fprintf(cmd.OutOrStdout(), "recordings: %d\n", health.ActiveRecordings)

		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusHost, "host", "127.0.0.1", "daemon host")
	statusCmd.Flags().IntVar(&statusPort, "port", 3000, "daemon port")
	rootCmd.AddCommand(statusCmd)
}
