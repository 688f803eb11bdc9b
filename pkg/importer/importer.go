package importer

import (
	"archive/zip"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chat-archive/pkg/archive"
)

// tableAliases renames well-known export basenames to their canonical
// logical table. ChatGPT exports ship the conversation dump as chat.html.
var tableAliases = map[string]string{
	"chat": "conversations",
}

// Batch is the decoded content of one source file, ready for ingestion.
type Batch struct {
	Basename string
	Records  []archive.Record
}

// LoadPath discovers and decodes every supported export file at path: a
// single .json/.html/.zip file, or a directory walked recursively. Files
// with unsupported extensions are skipped with a warning. Order is the
// filesystem walk order, so repeated runs see the same sequence.
func LoadPath(path string) ([]Batch, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "importer: stat %s", path)
	}
	if !info.IsDir() {
		return loadFile(path)
	}

	batches := []Batch{}
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtension(filepath.Ext(p)) {
			return nil
		}
		fileBatches, err := loadFile(p)
		if err != nil {
			return err
		}
		batches = append(batches, fileBatches...)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "importer: walk %s", path)
	}
	return batches, nil
}

func supportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".json", ".html", ".zip":
		return true
	}
	return false
}

func loadFile(path string) ([]Batch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSONFile(path)
	case ".html":
		return loadHTMLFile(path)
	case ".zip":
		return loadZipFile(path)
	default:
		log.Warn().Str("path", path).Msg("unsupported file format, skipping")
		return nil, nil
	}
}

func loadJSONFile(path string) ([]Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "importer: open %s", path)
	}
	defer func() { _ = f.Close() }()

	records, err := decodeRecords(f)
	if err != nil {
		return nil, errors.Wrapf(err, "importer: %s", path)
	}
	return batchFor(path, records), nil
}

func loadHTMLFile(path string) ([]Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "importer: open %s", path)
	}
	defer func() { _ = f.Close() }()

	payload, ok, err := extractEmbeddedJSON(f)
	if err != nil {
		return nil, errors.Wrapf(err, "importer: %s", path)
	}
	if !ok {
		log.Warn().Str("path", path).Msg("no embedded export data found in html, skipping")
		return nil, nil
	}
	records, err := decodeRecords(strings.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "importer: %s", path)
	}
	return batchFor(path, records), nil
}

func loadZipFile(path string) ([]Batch, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "importer: open zip %s", path)
	}
	defer func() { _ = r.Close() }()

	batches := []Batch{}
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name))
		if ext != ".json" && ext != ".html" {
			continue
		}
		entryBatches, err := loadZipEntry(entry, ext)
		if err != nil {
			return nil, errors.Wrapf(err, "importer: zip %s!%s", path, entry.Name)
		}
		batches = append(batches, entryBatches...)
	}
	return batches, nil
}

func loadZipEntry(entry *zip.File, ext string) ([]Batch, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open entry")
	}
	defer func() { _ = rc.Close() }()

	var source io.Reader = rc
	if ext == ".html" {
		payload, ok, err := extractEmbeddedJSON(rc)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Warn().Str("entry", entry.Name).Msg("no embedded export data found in html entry, skipping")
			return nil, nil
		}
		source = strings.NewReader(payload)
	}
	records, err := decodeRecords(source)
	if err != nil {
		return nil, err
	}
	return batchFor(entry.Name, records), nil
}

// decodeRecords reads one JSON document holding either an array of records
// or a single record object. Numbers decode as json.Number so large ids and
// epoch timestamps survive verbatim. Non-object array elements are dropped
// with a warning.
func decodeRecords(r io.Reader) ([]archive.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file; the caller warns and moves on.
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode json")
	}

	switch v := raw.(type) {
	case map[string]any:
		return []archive.Record{archive.Record(v)}, nil
	case []any:
		records := make([]archive.Record, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				log.Warn().Msg("non-object record in export array, skipping")
				continue
			}
			records = append(records, archive.Record(obj))
		}
		return records, nil
	default:
		return nil, errors.Errorf("unexpected top-level json value %T", raw)
	}
}

// BasenameForFile derives the logical table basename for a source file:
// extension stripped, well-known aliases applied, then sanitized into a
// valid identifier.
func BasenameForFile(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if alias, ok := tableAliases[strings.ToLower(base)]; ok {
		base = alias
	}
	return archive.SanitizeTableName(base)
}

func batchFor(path string, records []archive.Record) []Batch {
	if len(records) == 0 {
		log.Warn().Str("path", path).Msg("export file contained no records")
		return nil
	}
	return []Batch{{Basename: BasenameForFile(path), Records: records}}
}
