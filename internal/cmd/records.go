package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alekingreal/ajudaita/internal/core"
)

var (
	recordsOwner  string
	recordsKind   string
	recordsLimit  int
	recordsOutput string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect stored study records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := core.RecordKind(strings.TrimSpace(recordsKind))
		if kind != "" && !core.ValidKind(kind) {
			return fmt.Errorf("unknown record kind: %s", recordsKind)
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		records, err := db.ListRecords(cmd.Context(), recordsOwner, kind, recordsLimit)
		if err != nil {
			return err
		}

		if recordsOutput == "json" {
			payload, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Kind", "Created", "Payload"})
		for _, record := range records {
			t.AppendRow(table.Row{
				record.ID,
				string(record.Kind),
				record.CreatedAt.UTC().Format(time.RFC3339),
				payloadPreview(record.Payload),
			})
		}
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d record(s)", len(records))})
		fmt.Println(t.Render())
		return nil
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := db.DeleteRecord(cmd.Context(), args[0], recordsOwner); err != nil {
			return err
		}

		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func payloadPreview(payload string) string {
	payload = strings.ReplaceAll(payload, "\n", " ")
	if len(payload) > 60 {
		return payload[:57] + "..."
	}
	return payload
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)

	recordsCmd.PersistentFlags().StringVar(&recordsOwner, "owner", "anonymous", "record owner")
	recordsListCmd.Flags().StringVar(&recordsKind, "kind", "", "filter by kind: chat|summary|plan|board|card")
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 50, "maximum records to list")
	recordsListCmd.Flags().StringVar(&recordsOutput, "output-format", "table", "Output format: table|json")
}
