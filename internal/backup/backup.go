// Package backup exports the POS data as a single JSON document.
//
// The document has one field per stored collection, plus the export time and
// format version. Collections are copied from the key-value store verbatim,
// so the export never re-encodes amounts or dates.
package backup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/storage/kv"
)

// Version is the document format version.
const Version = "1.0"

// section maps a document field to the store key holding it. Empty is written
// when the key is missing.
type section struct {
	field string
	key   string
	empty string
}

var sections = []section{
	{field: "orders", key: kv.KeyOrders, empty: "[]"},
	{field: "orderArchive", key: kv.KeyOrderArchive, empty: "[]"},
	{field: "menuItems", key: kv.KeyMenuItems, empty: "[]"},
	{field: "categories", key: kv.KeyCategories, empty: "[]"},
	{field: "users", key: kv.KeyUsers, empty: "[]"},
	{field: "taxSettings", key: kv.KeyTaxSettings, empty: "{}"},
	{field: "discountTypes", key: kv.KeyDiscountTypes, empty: "[]"},
	{field: "restaurantSettings", key: kv.KeyRestaurantSettings, empty: "{}"},
	{field: "generalSettings", key: kv.KeyGeneralSettings, empty: "{}"},
}

// Document is a snapshot of the stored collections.
type Document struct {
	Sections   map[string]jx.Raw
	ExportDate time.Time
}

// FromStore reads every collection from store.
func FromStore(ctx context.Context, store kv.Store, now time.Time) (*Document, error) {
	doc := &Document{
		Sections:   make(map[string]jx.Raw, len(sections)),
		ExportDate: now,
	}
	for _, s := range sections {
		data, err := store.Get(ctx, s.key)
		switch {
		case errors.Is(err, kv.ErrKeyNotFound):
			data = []byte(s.empty)
		case err != nil:
			return nil, errors.Wrapf(err, "read %q", s.key)
		case !jx.Valid(data):
			return nil, errors.Errorf("stored %q is not valid JSON", s.key)
		}
		doc.Sections[s.field] = data
	}
	return doc, nil
}

// Encode renders the document.
func (d *Document) Encode(e *jx.Encoder) {
	e.ObjStart()
	for _, s := range sections {
		raw, ok := d.Sections[s.field]
		if !ok {
			raw = jx.Raw(s.empty)
		}
		e.FieldStart(s.field)
		e.Raw(raw)
	}
	e.FieldStart("exportDate")
	e.Str(d.ExportDate.UTC().Format(time.RFC3339Nano))
	e.FieldStart("version")
	e.Str(Version)
	e.ObjEnd()
}

// Write encodes d to w, gzip-compressed when compress is set.
func Write(w io.Writer, d *Document, compress bool) error {
	var e jx.Encoder
	d.Encode(&e)

	if !compress {
		if _, err := w.Write(e.Bytes()); err != nil {
			return errors.Wrap(err, "write backup")
		}
		return nil
	}

	gz := pgzip.NewWriter(w)
	if _, err := gz.Write(e.Bytes()); err != nil {
		_ = gz.Close()
		return errors.Wrap(err, "write compressed backup")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush compressed backup")
	}
	return nil
}

// FileName returns the suggested file name for a backup taken at t.
func FileName(t time.Time, compress bool) string {
	name := fmt.Sprintf("qpos-backup-%s.json", t.Format(time.DateOnly))
	if compress {
		name += ".gz"
	}
	return name
}

// Summary counts the entries of each collection in a backup.
type Summary struct {
	Version    string
	ExportDate string
	Counts     map[string]int
}

// Inspect reads a backup produced by Write and summarizes it.
func Inspect(r io.Reader, compressed bool) (*Summary, error) {
	if compressed {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open compressed backup")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	sum := &Summary{Counts: make(map[string]int)}
	d := jx.Decode(r, 64*1024)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "version":
			v, err := d.Str()
			sum.Version = v
			return err
		case "exportDate":
			v, err := d.Str()
			sum.ExportDate = v
			return err
		}
		if d.Next() != jx.Array {
			return d.Skip()
		}
		n := 0
		if err := d.Arr(func(d *jx.Decoder) error {
			n++
			return d.Skip()
		}); err != nil {
			return errors.Wrapf(err, "read %q", key)
		}
		sum.Counts[key] = n
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode backup")
	}
	return sum, nil
}

// Import is not supported; backups are for archival and inspection.
func Import(context.Context, io.Reader) error {
	return poserr.Unsupported("import backup")
}
