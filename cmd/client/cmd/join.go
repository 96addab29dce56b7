package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"polyform-sync/internal/logger"
	"polyform-sync/internal/roomclient"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

var (
	joinMode  string
	joinToken string
)

var joinCmd = &cobra.Command{
	Use:   "join <spaceId>",
	Short: "Join a space room and edit it live",
	Long: `join connects to the space's room and opens a line editor on its
first block. What you see follows --lang: text written in another language
is shown translated once the translation for the current version arrives.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var live atomic.Pointer[editor]
		session, err := roomclient.Open(ctx, api, roomclient.SessionOptions{
			SpaceID:     args[0],
			Mode:        joinMode,
			Token:       joinToken,
			DisplayName: viper.GetString(keyName),
			Language:    viper.GetString(keyLang),
			OnChange: func(blockID string) {
				if ed := live.Load(); ed != nil {
					ed.Notify(blockID)
				}
			},
			Log: log,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Close(); err != nil {
				log.Error("leaving room", logger.Err(err))
			}
		}()

		color.Green("Joined %q as %s (%s)", session.Space.Title, viper.GetString(keyName), session.Mode)

		ed := newEditor(session.Controller)
		live.Store(ed)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-session.Channel.Done():
				if err := session.Channel.Err(); err != nil {
					log.Warn("room connection ended", logger.Err(err))
					fmt.Fprintln(os.Stderr, "disconnected from room")
				}
				cancel()
			case <-runCtx.Done():
			}
		}()

		err = ed.Run(runCtx, os.Stdin, os.Stdout)
		if cerr := session.Controller.Err(); cerr != nil {
			log.Warn("last write failed", slog.String("error", cerr.Error()))
		}
		return err
	},
}

func init() {
	joinCmd.Flags().StringVarP(&joinMode, "mode", "m", "", "access mode from a share link (edit or view)")
	joinCmd.Flags().StringVar(&joinToken, "token", "", "share link token")
}
