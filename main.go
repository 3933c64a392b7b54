package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rm-hull/image-watermarker/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var rootPath string
	var configPath string
	var port int
	var debug bool
	var verbose bool

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	rootCmd := &cobra.Command{
		Use:  "image-watermarker",
		Long: `Resizes images into a set of output profiles and stamps them with a watermark`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (defaults to the built-in profiles)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	var workers int
	processCmd := &cobra.Command{
		Use:   "process <file-or-url>... [--out <path>] [--workers <n>]",
		Short: "Process images once and print their manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.Process(args, configPath, rootPath, workers)
		},
	}
	processCmd.Flags().StringVar(&rootPath, "out", "./data/images", "Path to output folder")
	processCmd.Flags().IntVar(&workers, "workers", 4, "Number of profiles rendered concurrently per image")

	apiServerCmd := &cobra.Command{
		Use:   "api-server [--root <path>] [--port <port>] [--debug]",
		Short: "Start HTTP API server",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.ApiServer(rootPath, configPath, port, debug)
		},
	}
	apiServerCmd.Flags().StringVar(&rootPath, "root", "./data/images", "Path to root folder")
	apiServerCmd.Flags().IntVar(&port, "port", 8080, "Port to run HTTP server on")
	apiServerCmd.Flags().BoolVar(&debug, "debug", false, "Enable debugging (pprof) - WARNING: do not enable in production")

	var inboxPath string
	var interval time.Duration
	var poolSize int
	watchCmd := &cobra.Command{
		Use:   "watch [--inbox <path>] [--root <path>] [--interval <duration>] [--workers <n>]",
		Short: "Process images as they are dropped into an inbox folder",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Watch(inboxPath, rootPath, configPath, interval, poolSize)
		},
	}
	watchCmd.Flags().StringVar(&inboxPath, "inbox", "./data/inbox", "Path to inbox folder")
	watchCmd.Flags().StringVar(&rootPath, "root", "./data/images", "Path to root folder")
	watchCmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Interval between inbox sweeps")
	watchCmd.Flags().IntVar(&poolSize, "workers", 2, "Number of inbox files processed concurrently")

	rootCmd.AddCommand(processCmd, apiServerCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
