package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	app "github.com/rocketscienceinc/seabattle/internal"
	"github.com/rocketscienceinc/seabattle/internal/config"
)

const defaultConfigPath = "config.yml"

// main - is the entry point of the application. It wires the commands and runs the selected one.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "seabattle",
		Short:        "Sea battle client and development room server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the config file")

	var username string

	play := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := initConfig(configPath)
			if err != nil {
				return err
			}

			if username != "" {
				conf.Player.Username = username
			}

			return app.RunClient(initLogger(conf, cmd.ErrOrStderr()), conf, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	play.Flags().StringVarP(&username, "username", "u", "", "player name, overrides the config")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the development room server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := initConfig(configPath)
			if err != nil {
				return err
			}

			return app.RunDevServer(initLogger(conf, os.Stdout), conf)
		},
	}

	token := &cobra.Command{
		Use:   "token <username>",
		Short: "Print the user hash the development server accepts for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := initConfig(configPath)
			if err != nil {
				return err
			}

			hash, err := app.IssueUserHash(conf, args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)

			return err
		},
	}

	root.AddCommand(play, serve, token)

	return root
}

// initialize config. A missing default file falls back to the environment.
func initConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Load("")
		}
	}

	return config.Load(path)
}

// initialize logger.
func initLogger(conf *config.Config, out io.Writer) *slog.Logger {
	if conf.LogFormat == "text" {
		level, err := charmlog.ParseLevel(conf.LogLevel)
		if err != nil {
			level = charmlog.InfoLevel
		}

		return slog.New(charmlog.NewWithOptions(out, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
		}))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
