package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alekingreal/ajudaita/internal/config"
	"github.com/alekingreal/ajudaita/internal/llm"
)

var (
	limitsServerURL string
	limitsOutput    string
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the assistant's rate limit state",
	Long: `Query a running server for the current admission gate snapshot:
requests and tokens used in the trailing minute, the next free request slot
and any active cooldown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := limitsServerURL
		if baseURL == "" {
			cfg := config.GetConfig()
			host := cfg.Server.Host
			if host == "" || host == "0.0.0.0" {
				host = "localhost"
			}
			baseURL = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
		}

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(baseURL + "/api/llm/limits")
		if err != nil {
			return fmt.Errorf("query server: %w", err)
		}
		defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %s", resp.Status)
		}

		var snapshot llm.Diagnostics
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}

		if limitsOutput == "json" {
			payload, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Window", "Used", "Limit", "Next Slot", "Cooldown"})
		t.AppendRow(table.Row{
			"requests/min",
			snapshot.RequestsUsed,
			snapshot.RequestLimit,
			formatMillis(snapshot.NextSlotMillis),
			formatMillis(snapshot.CooldownMillis),
		})
		t.AppendRow(table.Row{
			"tokens/min",
			snapshot.TokensUsed,
			snapshot.TokenLimit,
			"-",
			"-",
		})
		fmt.Println(t.Render())
		return nil
	},
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "now"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func init() {
	rootCmd.AddCommand(limitsCmd)

	limitsCmd.Flags().StringVar(&limitsServerURL, "server-url", "", "base URL of a running server (default derived from config)")
	limitsCmd.Flags().StringVar(&limitsOutput, "output-format", "table", "Output format: table|json")
}
