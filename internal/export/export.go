// Package export writes ESG records to JSON, YAML and XLSX files and reads
// JSON and YAML record dumps back for import.
package export

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/esg-cli/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", model.InvalidInputf("export: unknown format %q", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", model.InvalidInputf("export: cannot infer format of %q", path)
	}
	return ParseFormat(ext)
}

// Write encodes records to w in format f. JSON and YAML carry full records;
// XLSX carries the score and completion summary plus one row per sub-section.
func Write(w io.Writer, f Format, records []*model.Record) error {
	if records == nil {
		records = []*model.Record{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(records), "export: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return eris.Wrap(err, "export: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml encoder")
	case FormatXLSX:
		return writeXLSX(w, records)
	}
	return model.InvalidInputf("export: unknown format %q", f)
}

// Read decodes a JSON or YAML record dump.
func Read(r io.Reader, f Format) ([]*model.Record, error) {
	var records []*model.Record
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, model.InvalidInputf("export: decode json: %v", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&records); err != nil && err != io.EOF {
			return nil, model.InvalidInputf("export: decode yaml: %v", err)
		}
	default:
		return nil, model.InvalidInputf("export: %s cannot be imported", f)
	}
	return records, nil
}

var titler = cases.Title(language.English)

// Title renders a camelCase registry name as a heading, e.g. "companyInfo"
// becomes "Company Info".
func Title(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return titler.String(b.String())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
