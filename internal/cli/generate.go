package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgallion1/ismsdoc/internal/pipeline"
	"github.com/dgallion1/ismsdoc/internal/props"
	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		templatePath   string
		outPath        string
		lastModifiedBy string
	)
	cmd := &cobra.Command{
		Use:   "generate <model.json>",
		Short: "Render a document model into a Word document",
		Long: `Render a document model into a copy of the template (or a blank document),
fill the dynamic tables and document control table, and write the core and
custom document properties. When the output stays locked the properties go to
a <name>_props.docx sibling and a warning is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if templatePath != "" {
				cfg.TemplatePath = templatePath
			}
			if lastModifiedBy != "" {
				cfg.LastModifiedBy = lastModifiedBy
			}
			log := opts.logger(cmd)

			doc, err := loadModel(args[0])
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = filepath.Join(cfg.OutputDir, pipeline.OutputName(doc.Metadata)+".docx")
			}

			gen := pipeline.NewGenerator(cfg, log)
			res, err := gen.Generate(cmd.Context(), doc, cfg.TemplatePath, outPath)
			if err != nil && !errors.Is(err, props.ErrReplaceExhausted) {
				return err
			}

			w := cmd.OutOrStdout()
			rep := res.Report
			fmt.Fprintf(w, "wrote %s\n", res.Path)
			fmt.Fprintf(w, "  sections: %d  dynamic tables: %d  placeholders: %d  control table: %t\n",
				rep.Sections, len(rep.Tables), rep.Placeholders, rep.ControlTable)
			if res.Fallback {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s stayed locked; properties were written to %s\n", outPath, res.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template .docx (default: $TEMPLATE_PATH, or a blank document)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output .docx (default: $OUTPUT_DIR/<doc_id>_v<version>.docx)")
	cmd.Flags().StringVar(&lastModifiedBy, "last-modified-by", "", "Value for the lastModifiedBy core property")
	return cmd
}
