package render

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed assets/export.html.tmpl
var exportHTMLTemplate string

// ExportFormats lists the supported export file formats.
var ExportFormats = []string{"json", "txt", "html"}

// Export writes transcripts to path in the given format. The file is
// written to a temp sibling and renamed into place, so a crash never leaves
// a half-written export.
func Export(path, format string, transcripts []Transcript, style Style) error {
	var buf bytes.Buffer

	switch format {
	case "json":
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(transcripts); err != nil {
			return errors.Wrap(err, "render: encode export json")
		}
	case "txt":
		for i, t := range transcripts {
			if i > 0 {
				buf.WriteString("\n")
			}
			if err := Render(&buf, t, style); err != nil {
				return err
			}
		}
	case "html":
		tmpl, err := template.New("export").Parse(exportHTMLTemplate)
		if err != nil {
			return errors.Wrap(err, "render: parse export template")
		}
		if err := tmpl.Execute(&buf, transcripts); err != nil {
			return errors.Wrap(err, "render: execute export template")
		}
	default:
		return errors.Errorf("render: unknown export format %q (known: %v)", format, ExportFormats)
	}

	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "render: create temp export")
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "render: write export")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "render: close export")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "render: finalize export")
	}
	tmpName = ""

	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote export")
	return nil
}
