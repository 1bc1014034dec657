package seedfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
)

func parseCSV(r io.Reader) ([]bson.D, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV seed: %w", err)
	}
	return rowsToDocuments(rows)
}

func loadXLSX(filename, sheet string) ([]bson.D, error) {
	book, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	defer book.Close()

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filename)
		}
		sheet = sheets[0]
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rowsToDocuments(rows)
}

func rowsToDocuments(rows [][]string) ([]bson.D, error) {
	headerIdx := -1
	for i, row := range rows {
		if !rowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no non-empty header row found")
	}

	header := rows[headerIdx]
	startCol := 0
	for startCol < len(header) && strings.TrimSpace(header[startCol]) == "" {
		startCol++
	}

	var headers []string
	for _, cell := range header[startCol:] {
		headers = append(headers, strings.TrimSpace(cell))
	}

	docs := []bson.D{}
	for _, row := range rows[headerIdx+1:] {
		if len(row) <= startCol || rowEmpty(row) {
			continue
		}
		docs = append(docs, rowToDocument(headers, row[startCol:]))
	}
	return docs, nil
}

func rowToDocument(headers, cells []string) bson.D {
	doc := bson.D{}
	for i, header := range headers {
		if header == "" || i >= len(cells) {
			continue
		}
		value, ok := CellValue(cells[i])
		if !ok {
			continue
		}
		doc = append(doc, bson.E{Key: header, Value: value})
	}
	return doc
}

// CellValue types a table cell: integers, floats and booleans are converted,
// anything else stays a string. Blank cells report false.
func CellValue(raw string) (interface{}, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return raw, true
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
