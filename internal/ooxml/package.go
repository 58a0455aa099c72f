// Package ooxml reads and writes word-processing packages. XML parts are
// parsed lazily with etree; parts that are never edited are copied back out
// byte-for-byte, compressed stream included.
package ooxml

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
)

type entry struct {
	name  string
	file  *zip.File
	data  []byte
	doc   *etree.Document
	dirty bool
}

// Package is an opened .docx container.
type Package struct {
	path    string
	entries []*entry
	index   map[string]*entry
	closer  io.Closer
}

// Open opens the package at path. Close releases the file.
func Open(path string) (*Package, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			err = fmt.Errorf("%w: %v", ErrNotPackage, err)
		}
		return nil, &ArchiveError{Op: "open", Path: path, Err: err}
	}
	p := newPackage(rc.File)
	p.path = path
	p.closer = rc
	return p, nil
}

// OpenBytes opens a package held in memory.
func OpenBytes(data []byte) (*Package, error) {
	return OpenReader(bytes.NewReader(data), int64(len(data)))
}

// OpenReader opens a package from r.
func OpenReader(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			err = fmt.Errorf("%w: %v", ErrNotPackage, err)
		}
		return nil, &ArchiveError{Op: "open", Err: err}
	}
	return newPackage(zr.File), nil
}

func newPackage(files []*zip.File) *Package {
	p := &Package{index: make(map[string]*entry, len(files))}
	for _, f := range files {
		if _, dup := p.index[f.Name]; dup {
			continue
		}
		e := &entry{name: f.Name, file: f}
		p.entries = append(p.entries, e)
		p.index[f.Name] = e
	}
	return p
}

// Path is the file the package was opened from, if any.
func (p *Package) Path() string { return p.path }

// Close releases the underlying file when the package was opened by path.
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// Has reports whether the package contains part name.
func (p *Package) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Names lists part names in archive order.
func (p *Package) Names() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.name
	}
	return out
}

// Raw returns the uncompressed bytes of part name.
func (p *Package) Raw(name string) ([]byte, error) {
	e, ok := p.index[name]
	if !ok {
		return nil, &ArchiveError{Op: "read", Path: p.path, Part: name, Err: ErrPartMissing}
	}
	return e.bytes()
}

func (e *entry) bytes() ([]byte, error) {
	if e.doc != nil && e.dirty {
		return e.doc.WriteToBytes()
	}
	if e.data != nil {
		return e.data, nil
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Part returns the parsed XML of part name. The document is shared; use
// EditPart when the caller is going to change it.
func (p *Package) Part(name string) (*etree.Document, error) {
	e, ok := p.index[name]
	if !ok {
		return nil, &ArchiveError{Op: "read", Path: p.path, Part: name, Err: ErrPartMissing}
	}
	if e.doc != nil {
		return e.doc, nil
	}
	data, err := e.bytes()
	if err != nil {
		return nil, &ArchiveError{Op: "read", Path: p.path, Part: name, Err: err}
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ArchiveError{Op: "parse", Path: p.path, Part: name, Err: err}
	}
	if doc.Root() == nil {
		return nil, &ArchiveError{Op: "parse", Path: p.path, Part: name, Err: errors.New("no root element")}
	}
	e.doc = doc
	return doc, nil
}

// EditPart is Part for callers that mutate the tree; the part is
// re-serialized on write.
func (p *Package) EditPart(name string) (*etree.Document, error) {
	doc, err := p.Part(name)
	if err != nil {
		return nil, err
	}
	p.index[name].dirty = true
	return doc, nil
}

// SetPart replaces or adds part name. New parts get a content-type override
// when contentType is not empty.
func (p *Package) SetPart(name string, doc *etree.Document, contentType string) error {
	e, ok := p.index[name]
	if !ok {
		e = &entry{name: name}
		p.entries = append(p.entries, e)
		p.index[name] = e
		if contentType != "" {
			if err := p.ContentTypes().Override("/"+name, contentType); err != nil {
				return err
			}
		}
	}
	e.doc = doc
	e.data = nil
	e.dirty = true
	return nil
}

// SetRaw replaces or adds part name with raw bytes.
func (p *Package) SetRaw(name string, data []byte) {
	e, ok := p.index[name]
	if !ok {
		e = &entry{name: name}
		p.entries = append(p.entries, e)
		p.index[name] = e
	}
	e.doc = nil
	e.dirty = false
	e.data = data
}

// NewXMLDocument returns an empty document carrying the standard XML
// declaration.
func NewXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

// WriteTo writes the package as a zip stream. Untouched entries are copied
// raw.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, e := range p.entries {
		if err := p.writeEntry(zw, e); err != nil {
			zw.Close()
			return cw.n, &ArchiveError{Op: "write", Path: p.path, Part: e.name, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, &ArchiveError{Op: "write", Path: p.path, Err: err}
	}
	return cw.n, nil
}

func (p *Package) writeEntry(zw *zip.Writer, e *entry) error {
	if e.file != nil && !e.dirty && e.data == nil {
		return CopyRaw(zw, e.file)
	}
	data, err := e.bytes()
	if err != nil {
		return err
	}
	hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
	if e.file != nil {
		hdr.Modified = e.file.Modified
		hdr.Method = e.file.Method
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// CopyRaw copies f into zw without recompressing it.
func CopyRaw(zw *zip.Writer, f *zip.File) error {
	hdr := f.FileHeader
	fw, err := zw.CreateRaw(&hdr)
	if err != nil {
		return err
	}
	rc, err := f.OpenRaw()
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, rc)
	return err
}

// Bytes returns the serialized package.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveAs writes the package to path through a temp file in the same
// directory and a rename. Saving over the package's own source closes the
// source first; the package must not be read afterwards.
func (p *Package) SaveAs(path string) error {
	tmpPath, err := p.WriteTemp(path)
	if err != nil {
		return err
	}
	if p.IsSource(path) {
		p.Close()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &ArchiveError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// WriteTemp writes the package to a synced temp file next to path and
// returns its name. The caller renames or removes it.
func (p *Package) WriteTemp(path string) (string, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"-*.tmp")
	if err != nil {
		return "", &ArchiveError{Op: "save", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}
	// The rename must not change the permissions of an existing target.
	if err := tmp.Chmod(targetMode(path)); err != nil {
		cleanup()
		return "", &ArchiveError{Op: "save", Path: path, Err: err}
	}

	if _, err := p.WriteTo(tmp); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", &ArchiveError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &ArchiveError{Op: "save", Path: path, Err: err}
	}
	return tmpPath, nil
}

// targetMode is the permission set of path, or 0644 for a new file.
func targetMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// IsSource reports whether path names the file the package was opened from.
func (p *Package) IsSource(path string) bool {
	return p.path != "" && samePath(p.path, path)
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
