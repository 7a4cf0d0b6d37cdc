package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var apiURL string

	client := &apiClient{}

	rootCmd := &cobra.Command{
		Use:           "studioctl",
		Short:         "Operator CLI for the studio API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.configure(apiURL)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultURL := os.Getenv("STUDIO_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "Base URL of the studio API")

	rootCmd.AddCommand(newHealthCommand(client))
	rootCmd.AddCommand(newQueueCommand(client))
	rootCmd.AddCommand(newImagesCommand(client))
	rootCmd.AddCommand(newPipelineCommand(client))

	return rootCmd
}
