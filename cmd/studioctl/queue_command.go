package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranjd/lumiere-studio/internal/queue"
)

type queueResponse struct {
	Items    []queue.Item `json:"items"`
	Counts   queue.Counts `json:"counts"`
	InFlight int          `json:"inFlight"`
}

func newQueueCommand(client *apiClient) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the generation queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(client))
	queueCmd.AddCommand(newQueueListCommand(client))

	return queueCmd
}

func newQueueStatusCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp queueResponse
			if err := client.getJSON(cmd.Context(), "/api/generate/queue", &resp); err != nil {
				return err
			}
			rows := [][]string{
				{"pending", strconv.Itoa(resp.Counts.Pending)},
				{"processing", strconv.Itoa(resp.Counts.Processing)},
				{"done", strconv.Itoa(resp.Counts.Done)},
				{"error", strconv.Itoa(resp.Counts.Error)},
			}
			out := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(cmd.OutOrStdout(), out)
			fmt.Fprintf(cmd.OutOrStdout(), "in flight: %d\n", resp.InFlight)
			return nil
		},
	}
}

func newQueueListCommand(client *apiClient) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp queueResponse
			if err := client.getJSON(cmd.Context(), "/api/generate/queue", &resp); err != nil {
				return err
			}
			rows := make([][]string, 0, len(resp.Items))
			for _, item := range resp.Items {
				if statusFilter != "" && string(item.Status) != statusFilter {
					continue
				}
				detail := item.ResultFile
				if item.Status == queue.StatusError {
					detail = item.Error
				}
				rows = append(rows, []string{
					item.ID,
					truncate(item.Prompt, 40),
					item.Model,
					string(item.Status),
					item.CreatedAt.Format(time.RFC3339),
					truncate(detail, 40),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			out := renderTable(
				[]string{"ID", "Prompt", "Model", "Status", "Created", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show items with this status")

	return cmd
}
