package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

type pipelineStatusResponse struct {
	StatusCounts map[string]int `json:"statusCounts"`
	Total        int            `json:"total"`
	Running      bool           `json:"running"`
}

func newPipelineCommand(client *apiClient) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect and trigger the content pipeline",
	}

	pipelineCmd.AddCommand(newPipelineStatusCommand(client))
	pipelineCmd.AddCommand(newPipelineTriggerCommand(client))

	return pipelineCmd
}

func newPipelineStatusCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show calendar record counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp pipelineStatusResponse
			if err := client.getJSON(cmd.Context(), "/api/social/pipeline-status", &resp); err != nil {
				return err
			}

			statuses := make([]string, 0, len(resp.StatusCounts))
			for status := range resp.StatusCounts {
				statuses = append(statuses, status)
			}
			sort.Strings(statuses)

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{status, strconv.Itoa(resp.StatusCounts[status])})
			}
			if len(rows) > 0 {
				out := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d, running: %t\n", resp.Total, resp.Running)
			return nil
		},
	}
}

func newPipelineTriggerCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Start a generation pass over Idea records",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Status string `json:"status"`
			}
			if err := client.postJSON(cmd.Context(), "/api/social/trigger-generation", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			return nil
		},
	}
}
