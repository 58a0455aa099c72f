package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/parser"
	"github.com/dgallion1/ismsdoc/internal/pipeline"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		outPath  string
		docType  string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Read a .docx, .md, .html, .txt, .csv or .pdf file into a document model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			popts := pipeline.ParseOptions(cfg)
			popts.Log = opts.logger(cmd)
			if docType != "" {
				t, err := doctree.ParseDocType(docType)
				if err != nil {
					return fmt.Errorf("--doc-type: %w", err)
				}
				popts.DocType = t
			}

			doc, err := parser.ParseFile(args[0], popts)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			if validate {
				if err := doc.Validate(popts.Profile); err != nil {
					return err
				}
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encode model: %w", err)
			}
			data = append(data, '\n')
			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write model: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s)\n", outPath, doc.Metadata.DocID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Model output path (default: stdout)")
	cmd.Flags().StringVar(&docType, "doc-type", "", "Document type when the source names none: Policy, Procedure or Record")
	cmd.Flags().BoolVar(&validate, "validate", false, "Fail when the imported model does not validate")
	return cmd
}
