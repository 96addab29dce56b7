package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"polyform-sync/internal/domain"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List and create spaces",
}

var spacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recently updated spaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		spaces, err := api.ListSpaces(cmd.Context())
		if err != nil {
			return fmt.Errorf("list spaces: %w", err)
		}
		if len(spaces) == 0 {
			fmt.Println("No spaces yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tTITLE\tSOURCE\tDEFAULT MODE\tUPDATED\t\n")
		for _, s := range spaces {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
				s.ID, s.Title, s.SourceLanguage, s.ShareModeDefault,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var (
	createTitle    string
	createLanguage string
)

var spacesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a space with one document block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := api.CreateSpace(cmd.Context(), &domain.CreateSpaceRequest{
			Title:          createTitle,
			SourceLanguage: createLanguage,
		})
		if err != nil {
			return fmt.Errorf("create space: %w", err)
		}

		color.Green("Created %q", out.Space.Title)
		fmt.Printf("  id:     %s\n", out.Space.ID)
		fmt.Printf("  source: %s\n", out.Space.SourceLanguage)
		fmt.Printf("  blocks: %d\n", len(out.Blocks))
		fmt.Printf("\nJoin it with: polyform join %s\n", out.Space.ID)
		return nil
	},
}

func init() {
	spacesCreateCmd.Flags().StringVarP(&createTitle, "title", "t", "", "space title")
	spacesCreateCmd.Flags().StringVarP(&createLanguage, "source", "s", "", "source language of the space (default en)")

	spacesCmd.AddCommand(spacesListCmd, spacesCreateCmd)
}
