package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var (
		meta    doctree.Metadata
		docType string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init <model.json>",
		Short: "Write a model skeleton holding every mandatory section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			t, err := doctree.ParseDocType(docType)
			if err != nil {
				return fmt.Errorf("--type: %w", err)
			}
			meta.DocType = t
			meta.Status = doctree.StatusDraft
			if meta.Title == "" {
				meta.Title = meta.DocID
			}

			doc := doctree.NewSkeleton(meta, cfg.DocProfile())
			if err := doc.Validate(cfg.DocProfile()); err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}

			flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(args[0], flag, 0o644)
			if err != nil {
				return fmt.Errorf("create model: %w", err)
			}
			defer f.Close()
			if _, err := f.Write(append(data, '\n')); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&meta.DocID, "doc-id", "", "Document id, e.g. POL-ISMS-001")
	cmd.Flags().StringVar(&meta.Title, "title", "", "Document title")
	cmd.Flags().StringVar(&docType, "type", string(doctree.DocTypePolicy), "Policy, Procedure or Record")
	cmd.Flags().StringVar(&meta.Version, "version", "0.1", "Document version")
	cmd.Flags().StringVar(&meta.Owner, "owner", "", "Document owner")
	cmd.Flags().StringVar(&meta.Confidentiality, "confidentiality", "Internal", "Confidentiality classification")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	_ = cmd.MarkFlagRequired("doc-id")
	return cmd
}
