package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SAP/business-document-processing/classification"
)

func newClassifyCmd(opts *cliOptions) *cobra.Command {
	co := &classifyOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify documents against a deployed model (single file or directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := co.Complete(); err != nil {
				target := co.inputPath
				if target == "" {
					target = co.filePath
				}
				if logErr := logFailure(co.opts.failLogPath, "", target, err); logErr != nil {
					return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
				}
				return err
			}

			if err := co.Validate(); err != nil {
				return err
			}

			return co.Run(cmd)
		},
		ValidArgsFunction: positionalAlwaysFlags,
	}

	co.addFlags(cmd)

	return cmd
}

type classifyOptions struct {
	filePath     string
	inputPath    string
	modelName    string
	modelVersion int
	outputDir    string
	opts         *cliOptions
	files        []string
}

func (o *classifyOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.filePath, "file", "f", "", "Document file path to classify")
	cmd.Flags().StringVarP(&o.inputPath, "path", "p", "", "Path to a document or a directory containing PDF documents")
	cmd.Flags().StringVar(&o.modelName, "model", "", "Name of the deployed model")
	cmd.Flags().IntVar(&o.modelVersion, "model-version", 1, "Version of the deployed model")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", "", "Directory to store JSON results instead of printing them")
}

func (o *classifyOptions) Complete() error {
	if o.filePath == "" && o.inputPath == "" {
		return errors.New("flag --file or --path is required")
	}

	targetPath := o.filePath
	if targetPath == "" {
		targetPath = o.inputPath
	}

	files, err := collectInputFiles(targetPath, ".pdf")
	if err != nil {
		return err
	}
	o.files = files

	return nil
}

func (o *classifyOptions) Validate() error {
	if len(o.files) == 0 {
		return fmt.Errorf("no pdf documents found in %s", o.inputPath)
	}
	if o.modelName == "" {
		return errors.New("flag --model is required")
	}
	return nil
}

func (o *classifyOptions) Run(cmd *cobra.Command) error {
	if err := resolveCredentials(o.opts); err != nil {
		if logErr := logFailure(o.opts.failLogPath, "", "", err); logErr != nil {
			return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
		}
		return err
	}

	cli := buildClassificationClient(cmd, o.opts)
	ctx := cmd.Context()

	// Reference IDs are assigned up front so failed documents can be
	// correlated with the service's recent-classifications listing.
	referenceIDs := make(map[string]string, len(o.files))
	for _, path := range o.files {
		referenceIDs[path] = uuid.NewString()
	}

	var failed int
	for _, path := range o.files {
		result, err := cli.ClassifyDocument(ctx, path, o.modelName, o.modelVersion, classification.ClassifyParams{
			ReferenceID: referenceIDs[path],
		})
		if err != nil {
			failed++
			if logErr := logFailure(o.opts.failLogPath, referenceIDs[path], path, err); logErr != nil {
				return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "classification failed for %s: %v\n", path, err)
			continue
		}

		if o.outputDir == "" {
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			continue
		}
		target := filepath.Join(o.outputDir, changeExt(filepath.Base(path), ".json"))
		if err := writeJSON(target, result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved classification of %s to %s\n", path, target)
	}

	if failed > 0 {
		return fmt.Errorf("classification failed for %d of %d documents", failed, len(o.files))
	}
	return nil
}
