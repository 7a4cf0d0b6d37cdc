package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

func newImagesCommand(client *apiClient) *cobra.Command {
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List library images",
	}

	imagesCmd.AddCommand(newGeneratedListCommand(client, "generated", "List to-be-processed images", "/api/images/generated"))
	imagesCmd.AddCommand(newGeneratedListCommand(client, "archive", "List archived images", "/api/images/archive"))
	imagesCmd.AddCommand(newLibraryListCommand(client))

	return imagesCmd
}

func newGeneratedListCommand(client *apiClient, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Images []domain.GeneratedImage `json:"images"`
			}
			if err := client.getJSON(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if len(resp.Images) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No images")
				return nil
			}
			rows := make([][]string, 0, len(resp.Images))
			for _, img := range resp.Images {
				rows = append(rows, []string{
					img.File,
					img.Model,
					img.Aspect,
					strings.Join(img.Tags, ", "),
					truncate(img.Prompt, 50),
				})
			}
			out := renderTable(
				[]string{"File", "Model", "Aspect", "Tags", "Prompt"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newLibraryListCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "List reference library images",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Images []domain.LibraryImage `json:"images"`
			}
			if err := client.getJSON(cmd.Context(), "/api/images/library", &resp); err != nil {
				return err
			}
			if len(resp.Images) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No images")
				return nil
			}
			rows := make([][]string, 0, len(resp.Images))
			for _, img := range resp.Images {
				rows = append(rows, []string{
					img.File,
					img.Model,
					strings.Join(img.Tags, ", "),
					truncate(img.Prompt, 50),
				})
			}
			out := renderTable(
				[]string{"File", "Model", "Tags", "Prompt"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
