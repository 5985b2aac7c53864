package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cliOptions struct {
	baseURL        string
	authURL        string
	clientID       string
	clientSecret   string
	envFile        string
	verbose        bool
	pollingThreads int
	pollingSleep   time.Duration
	failLogPath    string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "bdp",
		Short:         "SAP Business Document Processing CLI helper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile == "" {
				return nil
			}
			if err := godotenv.Load(opts.envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", opts.envFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", os.Getenv("BDP_BASE_URL"), "Service URL from the service key (or set BDP_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.authURL, "auth-url", os.Getenv("BDP_AUTH_URL"), "XSUAA URL from the service key (or set BDP_AUTH_URL)")
	cmd.PersistentFlags().StringVar(&opts.clientID, "client-id", "", "XSUAA client ID (or set BDP_CLIENT_ID)")
	cmd.PersistentFlags().StringVar(&opts.clientSecret, "client-secret", "", "XSUAA client secret (or set BDP_CLIENT_SECRET)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file with the BDP_* variables")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log request and polling progress")
	cmd.PersistentFlags().IntVar(&opts.pollingThreads, "polling-threads", 0, "Number of parallel workers for batch operations")
	cmd.PersistentFlags().DurationVar(&opts.pollingSleep, "polling-sleep", 0, "Wait between polling attempts")
	cmd.PersistentFlags().StringVar(&opts.failLogPath, "fail-log", "fail.log", "Path to write failed document logs")

	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newClassifyCmd(opts))
	cmd.AddCommand(newCapabilitiesCmd(opts))
	cmd.AddCommand(newCompletionCmd())

	return cmd
}
