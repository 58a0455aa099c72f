package pipeline

import (
	"log/slog"

	"github.com/dgallion1/ismsdoc/internal/body"
	"github.com/dgallion1/ismsdoc/internal/config"
	"github.com/dgallion1/ismsdoc/internal/parser"
	"github.com/dgallion1/ismsdoc/internal/props"
	"github.com/dgallion1/ismsdoc/internal/render"
)

// NewGenerator wires a generator from cfg.
func NewGenerator(cfg config.Config, log *slog.Logger) *render.Generator {
	vocab := body.DefaultVocabulary().WithTableStyle(cfg.DefaultTableStyle)
	g := render.NewGenerator(
		cfg.DocProfile(),
		render.NewRenderer(vocab, log),
		props.NewPatcher(cfg.ReplaceAttempts, cfg.ReplaceBackoff, log),
		log,
	)
	if cfg.LastModifiedBy != "" {
		g.LastModifiedBy = cfg.LastModifiedBy
	}
	return g
}

// ParseOptions returns importer options matching cfg.
func ParseOptions(cfg config.Config) parser.Options {
	opts := parser.DefaultOptions()
	opts.Profile = cfg.DocProfile()
	opts.FallbackPdftotext = cfg.PDFFallbackPdftotext
	return opts
}
