package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"polyform-sync/internal/domain"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var shareMode string

var shareCmd = &cobra.Command{
	Use:   "share <spaceId>",
	Short: "Create a share link for a space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := domain.ShareMode(shareMode)
		if mode != domain.ShareModeEdit && mode != domain.ShareModeView {
			return fmt.Errorf("--mode must be edit or view")
		}

		link, err := api.CreateShareLink(cmd.Context(), args[0], mode)
		if err != nil {
			return fmt.Errorf("create share link: %w", err)
		}

		color.Green("Share link (%s)", link.Mode)
		fmt.Println(link.Link)
		fmt.Printf("\nJoin from the CLI with: polyform join %s --mode %s --token %s\n", args[0], link.Mode, link.Token)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <spaceId>",
	Short: "Freeze a space into a snapshot, or print one with --show",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotShow {
			snap, err := api.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get snapshot: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		out, err := api.CreateSnapshot(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}

		color.Green("Snapshot %s", out.SnapshotID)
		fmt.Printf("  taken: %s\n", out.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("  link:  %s\n", out.Link)
		return nil
	},
}

var snapshotShow bool

func init() {
	shareCmd.Flags().StringVarP(&shareMode, "mode", "m", string(domain.ShareModeView), "access granted by the link (edit or view)")
	snapshotCmd.Flags().BoolVar(&snapshotShow, "show", false, "treat the argument as a snapshot id and print it")
}
