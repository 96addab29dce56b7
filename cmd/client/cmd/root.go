package cmd

import (
	"fmt"
	"os"

	"polyform-sync/internal/logger"
	"polyform-sync/internal/roomclient"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

const (
	keyServer = "server"
	keyName   = "name"
	keyLang   = "lang"
	keyDebug  = "debug"
)

var (
	api *roomclient.Client
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "polyform",
	Short: "Polyform - multilingual realtime document rooms",
	Long: `polyform talks to a polyform sync server: it lists and creates
spaces, issues share links and snapshots, and joins a space room as a live
editor whose view follows the language you read in.`,
	PersistentPreRunE: setupClient,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupClient(_ *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if viper.GetBool(keyDebug) {
		level = slog.LevelDebug
	}
	log = slog.New(logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	server := viper.GetString(keyServer)
	if server == "" {
		return fmt.Errorf("--server is required")
	}
	api = roomclient.NewClient(server, nil)
	return nil
}

func init() {
	viper.SetEnvPrefix("POLYFORM")
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String(keyServer, "http://localhost:8080", "sync server URL")
	flags.String(keyName, "Guest", "display name shown to other participants")
	flags.String(keyLang, "en", "language you read in")
	flags.Bool(keyDebug, false, "log debug output to stderr")

	for _, key := range []string{keyServer, keyName, keyLang, keyDebug} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(spacesCmd, shareCmd, snapshotCmd, joinCmd)
}
