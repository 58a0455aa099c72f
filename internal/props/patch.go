package props

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/ismsdoc/internal/ooxml"
)

// ErrReplaceExhausted is returned, wrapped in an *ooxml.ArchiveError, when
// the patched archive could not be renamed over the target and was written
// to a fallback file instead.
var ErrReplaceExhausted = errors.New("atomic replace exhausted retries")

const (
	DefaultAttempts       = 8
	DefaultBackoff        = 250 * time.Millisecond
	DefaultFallbackSuffix = "_props"
)

// Result reports where the patched package ended up.
type Result struct {
	Path     string
	Fallback bool
}

// Patcher rewrites the property parts of a package in place.
type Patcher struct {
	Attempts       int
	Backoff        time.Duration
	FallbackSuffix string
	Log            *slog.Logger

	rename func(oldpath, newpath string) error
}

// NewPatcher returns a patcher with the given retry budget. Zero values take
// the defaults.
func NewPatcher(attempts int, backoff time.Duration, log *slog.Logger) *Patcher {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Patcher{Attempts: attempts, Backoff: backoff, FallbackSuffix: DefaultFallbackSuffix, Log: log, rename: os.Rename}
}

// Apply upserts u into an open package without saving it.
func Apply(pkg *ooxml.Package, u Update) error {
	corePart, customPart, err := partNames(pkg)
	if err != nil {
		return err
	}

	if u.touchesCore() {
		doc, err := editPart(pkg, corePart, ooxml.CTCoreProps, ooxml.RelCoreProps, newCoreDoc)
		if err != nil {
			return err
		}
		fields := make([]CoreField, 0, len(u.Core))
		for f := range u.Core {
			if _, ok := coreNS[f]; !ok {
				return fmt.Errorf("unknown core property %q", f)
			}
			fields = append(fields, f)
		}
		// Map order is random; new elements are appended in a fixed order.
		sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
		for _, f := range fields {
			setCore(doc.Root(), f, u.Core[f])
		}
		if !u.Modified.IsZero() {
			setModified(doc.Root(), u.Modified)
		}
	}

	if len(u.Custom) > 0 {
		doc, err := editPart(pkg, customPart, ooxml.CTCustomProps, ooxml.RelCustomProps, newCustomDoc)
		if err != nil {
			return err
		}
		for _, p := range u.Custom {
			if p.Name == "" {
				return errors.New("custom property without a name")
			}
			setCustom(doc.Root(), p)
		}
	}
	return nil
}

// Patch applies u to the package at path and atomically replaces the file.
// When the rename keeps failing on a lock, the result is written next to the
// target as <stem>_props<ext> and returned with an error wrapping
// ErrReplaceExhausted. The target is never truncated.
func (p *Patcher) Patch(ctx context.Context, path string, u Update) (Result, error) {
	pkg, err := ooxml.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer pkg.Close()

	if err := Apply(pkg, u); err != nil {
		return Result{}, fmt.Errorf("patch %s: %w", path, err)
	}
	tmp, err := pkg.WriteTemp(path)
	if err != nil {
		return Result{}, err
	}
	pkg.Close()
	return p.replace(ctx, tmp, path)
}

func (p *Patcher) replace(ctx context.Context, tmp, path string) (Result, error) {
	rename := p.rename
	if rename == nil {
		rename = os.Rename
	}
	log := p.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	attempts := max(p.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = rename(tmp, path)
		if lastErr == nil {
			return Result{Path: path}, nil
		}
		if !IsLockError(lastErr) {
			os.Remove(tmp)
			return Result{}, &ooxml.ArchiveError{Op: "replace", Path: path, Err: lastErr}
		}
		if attempt == attempts {
			break
		}
		log.Warn("replace blocked, retrying", "path", path, "attempt", attempt, "error", lastErr)
		select {
		case <-ctx.Done():
			os.Remove(tmp)
			return Result{}, ctx.Err()
		case <-time.After(p.Backoff):
		}
	}

	fallback := FallbackPath(path, p.FallbackSuffix)
	if err := rename(tmp, fallback); err != nil {
		os.Remove(tmp)
		return Result{}, &ooxml.ArchiveError{Op: "replace", Path: fallback, Err: err}
	}
	log.Warn("wrote fallback copy", "path", path, "fallback", fallback, "error", lastErr)
	return Result{Path: fallback, Fallback: true}, &ooxml.ArchiveError{
		Op:   "replace",
		Path: path,
		Err:  fmt.Errorf("%w after %d attempts: %v", ErrReplaceExhausted, attempts, lastErr),
	}
}

// FallbackPath returns the sibling file used when path cannot be replaced,
// e.g. report.docx -> report_props.docx.
func FallbackPath(path, suffix string) string {
	if suffix == "" {
		suffix = DefaultFallbackSuffix
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// IsLockError reports whether err looks like another process holding the
// file: permission denied, busy, or a Windows sharing violation.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "being used by another process") || strings.Contains(msg, "sharing violation")
}

// Read returns the core and custom properties of the package at path.
func Read(path string) (Properties, error) {
	pkg, err := ooxml.Open(path)
	if err != nil {
		return Properties{}, err
	}
	defer pkg.Close()
	return ReadPackage(pkg)
}

// ReadPackage returns the core and custom properties of an open package.
// Missing parts yield empty lists.
func ReadPackage(pkg *ooxml.Package) (Properties, error) {
	corePart, customPart, err := partNames(pkg)
	if err != nil {
		return Properties{}, err
	}
	var out Properties
	if pkg.Has(corePart) {
		doc, err := pkg.Part(corePart)
		if err != nil {
			return Properties{}, err
		}
		for _, e := range doc.Root().ChildElements() {
			out.Core = append(out.Core, Field{Name: e.Tag, Type: e.SelectAttrValue("xsi:type", ""), Value: strings.TrimSpace(e.Text())})
		}
	}
	if pkg.Has(customPart) {
		doc, err := pkg.Part(customPart)
		if err != nil {
			return Properties{}, err
		}
		for _, e := range ooxml.Children(doc.Root(), ooxml.NSCustomProps, "property") {
			f := Field{Name: e.SelectAttrValue("name", "")}
			if v := e.ChildElements(); len(v) > 0 {
				f.Type = v[0].Tag
				f.Value = v[0].Text()
			}
			out.Custom = append(out.Custom, f)
		}
	}
	return out, nil
}
