package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mbolis/survey3/auth"
	"github.com/mbolis/survey3/config"
	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/log"
	"github.com/spf13/cobra"
)

const programName = "survey3"

// set with -ldflags "-X main.version=..."
var version = "dev"

var globalFlags = struct {
	envFile string
	debug   bool
	port    int
}{}

// loadConfig reads the environment and applies the command line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(globalFlags.envFile)
	if err != nil {
		return cfg, err
	}
	if globalFlags.port > 0 {
		cfg.Port = globalFlags.port
	}
	if globalFlags.debug {
		cfg.Debug = true
	}

	log.SetFormat(cfg.LogFormat)
	switch {
	case cfg.Debug:
		log.SetLevel(log.DebugLevel)
	case cfg.LogLevel != "":
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return cfg, fmt.Errorf("config: LOG_LEVEL: %w", err)
		}
		log.SetLevel(level)
	}
	return cfg, nil
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQLite migrations or create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabaseName)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			err = db.Migrate(ctx)
			if err != nil {
				return err
			}
			log.Info("Database is up to date")
			return nil
		},
	}
}

func keygenCommand() *cobra.Command {
	var bits int
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a new API_SECRET signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := auth.GenerateSecret(bits)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", auth.DefaultKeyBits, "RSA key size")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", programName, version)
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Survey API backed by IPFS",
		SilenceUsage: true,
		RunE:         serveRun,
	}

	rootCmd.PersistentFlags().
		StringVar(&globalFlags.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		IntVarP(&globalFlags.port, "port", "p", 0, "listen port, overrides PORT")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(keygenCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
