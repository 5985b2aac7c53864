package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCapabilitiesCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Show the extraction fields and document types the service instance supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveCredentials(opts); err != nil {
				return err
			}

			cli := buildExtractionClient(cmd, opts)
			capabilities, err := cli.GetCapabilities(cmd.Context())
			if err != nil {
				if logErr := logFailure(opts.failLogPath, "", "capabilities", err); logErr != nil {
					return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
				}
				return err
			}

			return printJSON(cmd, capabilities)
		},
	}

	return cmd
}
