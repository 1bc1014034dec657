package seedfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Format represents the supported seed file formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// File is the parsed content of a seed file. Database and Collection are
// only populated by formats that can carry them (JSON and YAML).
type File struct {
	Database   string
	Collection string
	Documents  []bson.D
}

// Options tune how tabular formats are read.
type Options struct {
	// Sheet selects the worksheet of an XLSX workbook; the first sheet when empty.
	Sheet string
}

// DetectFormat attempts to detect the format based on file extension.
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported seed format: %s (must be json, yaml, csv or xlsx)", name)
	}
}

// Load reads a seed file in the given format.
func Load(format Format, filename string, opts *Options) (*File, error) {
	if opts == nil {
		opts = &Options{}
	}

	if format == FormatXLSX {
		docs, err := loadXLSX(filename, opts.Sheet)
		if err != nil {
			return nil, err
		}
		return &File{Documents: docs}, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file %s: %w", filename, err)
	}

	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	case FormatCSV:
		docs, err := parseCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &File{Documents: docs}, nil
	default:
		return nil, fmt.Errorf("unsupported seed format: %s", format)
	}
}

// LoadFile detects the format from the extension and loads the file.
func LoadFile(filename string, opts *Options) (*File, error) {
	return Load(DetectFormat(filename), filename, opts)
}
