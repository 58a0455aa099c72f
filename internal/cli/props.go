package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dgallion1/ismsdoc/internal/props"
	"github.com/spf13/cobra"
)

func newPropsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "props",
		Short: "Show or edit document properties",
	}
	cmd.AddCommand(newPropsShowCmd(), newPropsSetCmd(opts))
	return cmd
}

func newPropsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <file.docx>",
		Short: "Print the core and custom properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := props.Read(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCOPE\tNAME\tTYPE\tVALUE")
			for _, f := range p.Core {
				fmt.Fprintf(tw, "core\t%s\t%s\t%s\n", f.Name, f.Type, f.Value)
			}
			for _, f := range p.Custom {
				fmt.Fprintf(tw, "custom\t%s\t%s\t%s\n", f.Name, f.Type, f.Value)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newPropsSetCmd(opts *rootOptions) *cobra.Command {
	var (
		core      []string
		custom    []string
		filetimes []string
		touch     bool
	)
	cmd := &cobra.Command{
		Use:   "set <file.docx>",
		Short: "Set core and custom properties in place",
		Example: `  ismsdoc props set policy.docx --core title="Access Control Policy" \
    --custom DocID=POL-ISMS-004 --filetime NextReviewDate=2027-01-31`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			u, err := buildUpdate(core, custom, filetimes)
			if err != nil {
				return err
			}
			if touch {
				u.Modified = time.Now().UTC()
			}
			if !u.touchesAnything() {
				return errors.New("nothing to set: pass --core, --custom, --filetime or --touch")
			}

			patcher := props.NewPatcher(cfg.ReplaceAttempts, cfg.ReplaceBackoff, opts.logger(cmd))
			res, err := patcher.Patch(cmd.Context(), args[0], u.Update)
			if err != nil && !errors.Is(err, props.ErrReplaceExhausted) {
				return err
			}
			if res.Fallback {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s stayed locked; properties were written to %s\n", args[0], res.Path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", res.Path)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&core, "core", nil, "Core property as field=value (title, subject, creator, category, keywords, lastModifiedBy)")
	cmd.Flags().StringArrayVar(&custom, "custom", nil, "Text custom property as Name=Value")
	cmd.Flags().StringArrayVar(&filetimes, "filetime", nil, "Date custom property as Name=YYYY-MM-DD or an RFC 3339 time")
	cmd.Flags().BoolVar(&touch, "touch", false, "Set dcterms:modified to now")
	return cmd
}

type update struct{ props.Update }

func (u update) touchesAnything() bool {
	return len(u.Core) > 0 || len(u.Custom) > 0 || !u.Modified.IsZero()
}

// buildUpdate turns name=value flag values into a property update.
func buildUpdate(core, custom, filetimes []string) (update, error) {
	var u update
	for _, kv := range core {
		name, value, err := splitPair(kv)
		if err != nil {
			return u, fmt.Errorf("--core: %w", err)
		}
		field, err := props.ParseCoreField(name)
		if err != nil {
			return u, fmt.Errorf("--core: %w", err)
		}
		if u.Core == nil {
			u.Core = map[props.CoreField]string{}
		}
		u.Core[field] = value
	}
	for _, kv := range custom {
		name, value, err := splitPair(kv)
		if err != nil {
			return u, fmt.Errorf("--custom: %w", err)
		}
		u.Custom = append(u.Custom, props.Text(name, value))
	}
	for _, kv := range filetimes {
		name, value, err := splitPair(kv)
		if err != nil {
			return u, fmt.Errorf("--filetime: %w", err)
		}
		p, err := props.ParseFileTime(name, value)
		if err != nil {
			return u, fmt.Errorf("--filetime: %w", err)
		}
		u.Custom = append(u.Custom, p)
	}
	return u, nil
}

func splitPair(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%q is not name=value", kv)
	}
	return name, value, nil
}
