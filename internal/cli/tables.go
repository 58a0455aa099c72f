package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/doctree"
	"github.com/dgallion1/ismsdoc/internal/ooxml"
	"github.com/dgallion1/ismsdoc/internal/tables"
	"github.com/spf13/cobra"
)

func newTablesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Fill dynamic tables in an existing document",
	}
	cmd.AddCommand(newTablesApplyCmd(opts))
	return cmd
}

func newTablesApplyCmd(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "apply <file.docx> <specs.json>",
		Short: "Find or create each declared table and write its rows",
		Long: `Apply dynamic table declarations to a document. specs.json holds either a
JSON array of tables or a model whose dynamic_tables field lists them.
The document is rewritten in place unless --out is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			log := opts.logger(cmd)
			specs, err := loadTableSpecs(args[1])
			if err != nil {
				return err
			}

			pkg, err := ooxml.Open(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()
			b, err := body.Load(pkg, body.DefaultVocabulary().WithTableStyle(cfg.DefaultTableStyle), log)
			if err != nil {
				return err
			}
			results, err := tables.NewReconciler(log).ApplyAll(b, specs)
			if err != nil {
				return err
			}
			if err := b.Flush(); err != nil {
				return err
			}
			dest := args[0]
			if outPath != "" {
				dest = outPath
			}
			if err := pkg.SaveAs(dest); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for i, res := range results {
				fmt.Fprintf(w, "%s: %s\n", specs[i].Name, describeTable(res))
			}
			fmt.Fprintf(w, "wrote %s\n", dest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the result here instead of in place")
	return cmd
}

func describeTable(r tables.Result) string {
	switch {
	case r.Skipped:
		return "skipped (no target)"
	case r.Created:
		return "created"
	case r.Replaced:
		return "replaced"
	default:
		return "filled"
	}
}

func loadTableSpecs(path string) ([]doctree.DynamicTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specs: %w", err)
	}
	var specs []doctree.DynamicTable
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &specs)
	} else {
		var wrapper struct {
			DynamicTables []doctree.DynamicTable `json:"dynamic_tables"`
		}
		err = json.Unmarshal(data, &wrapper)
		specs = wrapper.DynamicTables
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%s declares no tables", path)
	}
	return specs, nil
}
