package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SAP/business-document-processing/extraction"
)

func newExtractCmd(opts *cliOptions) *cobra.Command {
	eo := &extractOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Upload documents and extract header and line item fields (single file or directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := eo.Complete(); err != nil {
				target := eo.inputPath
				if target == "" {
					target = eo.filePath
				}
				if logErr := logFailure(eo.opts.failLogPath, "", target, err); logErr != nil {
					return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
				}
				return err
			}

			if err := eo.Validate(); err != nil {
				return err
			}

			return eo.Run(cmd)
		},
		ValidArgsFunction: positionalAlwaysFlags,
	}

	eo.addFlags(cmd)

	return cmd
}

type extractOptions struct {
	filePath         string
	inputPath        string
	clientID         string
	documentType     string
	headerFields     string
	lineItemFields   string
	schemaID         string
	templateID       string
	mimeType         string
	returnNullValues bool
	output           string
	outputDir        string
	opts             *cliOptions
	files            []string
}

func (o *extractOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.filePath, "file", "f", "", "Document file path to upload")
	cmd.Flags().StringVarP(&o.inputPath, "path", "p", "", "Path to a document or a directory containing PDF documents")
	cmd.Flags().StringVar(&o.clientID, "extraction-client", "default", "Client ID the documents are uploaded for")
	cmd.Flags().StringVar(&o.documentType, "document-type", extraction.DocumentTypeInvoice, "Type of the uploaded documents: invoice|paymentAdvice")
	cmd.Flags().StringVar(&o.headerFields, "header-fields", "", "Comma separated header fields to extract")
	cmd.Flags().StringVar(&o.lineItemFields, "line-item-fields", "", "Comma separated line item fields to extract")
	cmd.Flags().StringVar(&o.schemaID, "schema-id", "", "Schema ID to extract against instead of explicit field lists")
	cmd.Flags().StringVar(&o.templateID, "template-id", "", "Template ID to extract against")
	cmd.Flags().StringVar(&o.mimeType, "mime-type", extraction.ContentTypePDF, "Content type of the uploaded documents ('unknown' sniffs per file)")
	cmd.Flags().BoolVar(&o.returnNullValues, "return-null-values", false, "Include fields extracted as null in the results")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Optional path to save the extraction result JSON of a single document")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", "", "Directory to store JSON results when extracting multiple documents")
}

func (o *extractOptions) Complete() error {
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

func (o *extractOptions) Validate() error {
	if len(o.files) == 0 {
		return fmt.Errorf("no pdf documents found in %s", o.inputPath)
	}
	if o.headerFields == "" && o.lineItemFields == "" && o.schemaID == "" {
		return errors.New("flag --schema-id or at least one of --header-fields / --line-item-fields is required")
	}
	return nil
}

func (o *extractOptions) Run(cmd *cobra.Command) error {
	if err := resolveCredentials(o.opts); err != nil {
		if logErr := logFailure(o.opts.failLogPath, "", "", err); logErr != nil {
			return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
		}
		return err
	}

	cli := buildExtractionClient(cmd, o.opts)
	ctx := cmd.Context()

	options := extraction.NewDocumentOptions(o.clientID, o.documentType,
		extraction.SplitFieldList(o.headerFields),
		extraction.SplitFieldList(o.lineItemFields),
		o.schemaID)
	options.TemplateID = o.templateID

	results, err := cli.ExtractInformationFromDocuments(ctx, o.files, options, extraction.ExtractParams{
		MimeType:         o.mimeType,
		ReturnNullValues: o.returnNullValues,
	})
	if err != nil {
		if logErr := logFailure(o.opts.failLogPath, "", o.inputPath, err); logErr != nil {
			return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
		}
		return err
	}

	var failed int
	for results.Next() {
		result, err := results.Result()
		if err != nil {
			failed++
			if logErr := logFailure(o.opts.failLogPath, "", results.Key(), err); logErr != nil {
				return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "extraction failed for %s: %v\n", results.Key(), err)
			continue
		}

		target := o.output
		if o.outputDir != "" {
			target = filepath.Join(o.outputDir, changeExt(filepath.Base(results.Key()), ".json"))
		}
		if target == "" {
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			continue
		}
		if err := writeJSON(target, result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved extraction of %s to %s\n", results.Key(), target)
	}

	if failed > 0 {
		return fmt.Errorf("extraction failed for %d of %d documents", failed, results.Len())
	}
	return nil
}
