package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	bdp "github.com/SAP/business-document-processing"
	"github.com/SAP/business-document-processing/classification"
	"github.com/SAP/business-document-processing/extraction"
)

func resolveCredentials(opts *cliOptions) error {
	if opts.clientID == "" {
		opts.clientID = os.Getenv("BDP_CLIENT_ID")
	}
	if opts.clientSecret == "" {
		opts.clientSecret = os.Getenv("BDP_CLIENT_SECRET")
	}
	if opts.baseURL == "" {
		opts.baseURL = os.Getenv("BDP_BASE_URL")
	}
	if opts.authURL == "" {
		opts.authURL = os.Getenv("BDP_AUTH_URL")
	}

	var missing []string
	if opts.baseURL == "" {
		missing = append(missing, "--base-url / BDP_BASE_URL")
	}
	if opts.authURL == "" {
		missing = append(missing, "--auth-url / BDP_AUTH_URL")
	}
	if opts.clientID == "" {
		missing = append(missing, "--client-id / BDP_CLIENT_ID")
	}
	if opts.clientSecret == "" {
		missing = append(missing, "--client-secret / BDP_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required settings: " + strings.Join(missing, ", "))
	}
	return nil
}

func clientOptions(cmd *cobra.Command, opts *cliOptions) []bdp.Option {
	options := []bdp.Option{
		bdp.WithLogger(newLogger(cmd.ErrOrStderr(), opts.verbose)),
	}
	if opts.pollingThreads > 0 {
		options = append(options, bdp.WithPollingThreads(opts.pollingThreads))
	}
	if opts.pollingSleep > 0 {
		options = append(options, bdp.WithPollingSleep(opts.pollingSleep))
	}
	return options
}

func buildExtractionClient(cmd *cobra.Command, opts *cliOptions) *extraction.Client {
	return extraction.NewClient(opts.baseURL, opts.clientID, opts.clientSecret, opts.authURL,
		clientOptions(cmd, opts)...)
}

func buildClassificationClient(cmd *cobra.Command, opts *cliOptions) *classification.Client {
	return classification.NewClient(opts.baseURL, opts.clientID, opts.clientSecret, opts.authURL,
		clientOptions(cmd, opts)...)
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// collectInputFiles expands a file or directory path into the list of
// documents with the given extension.
func collectInputFiles(p, ext string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	if info.Mode().IsRegular() {
		if strings.EqualFold(filepath.Ext(p), ext) {
			return []string{p}, nil
		}
		return nil, fmt.Errorf("file is not a %s document: %s", ext, p)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is neither file nor directory: %s", p)
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			files = append(files, filepath.Join(p, entry.Name()))
		}
	}

	return files, nil
}

func changeExt(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + ext
}

func writeJSON(path string, data any) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, data any) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(content))
	return nil
}
