package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the studio API is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Status string `json:"status"`
			}
			if err := client.getJSON(cmd.Context(), "/api/health", &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
			return nil
		},
	}
}
