package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model.json>",
		Short: "Check a document model against the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			doc, err := loadModel(args[0])
			if err != nil {
				return err
			}
			profile := cfg.DocProfile()
			if err := doc.Validate(profile); err != nil {
				var se *doctree.ShapeError
				if errors.As(err, &se) && len(se.Missing) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "missing sections: %s\n", strings.Join(se.Missing, ", "))
				}
				return err
			}

			n := 0
			doc.Walk(func(*doctree.Section) bool { n++; return true })
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s profile (%d sections, %d dynamic tables)\n",
				doc.Metadata.DocID, profile.Name, n, len(doc.DynamicTables))
			return nil
		},
	}
}

// loadModel reads and decodes a JSON document model.
func loadModel(path string) (*doctree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	doc, err := doctree.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
