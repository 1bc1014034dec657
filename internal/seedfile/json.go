package seedfile

import (
	"bytes"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

type jsonFile struct {
	Database   string   `bson:"database_name"`
	Collection string   `bson:"collection_name"`
	Documents  []bson.D `bson:"documents"`
}

func parseJSON(data []byte) (*File, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to parse JSON seed: empty file")
	}

	// Extended JSON only decodes documents at the top level.
	if trimmed[0] == '[' {
		wrapped := make([]byte, 0, len(trimmed)+16)
		wrapped = append(wrapped, `{"documents":`...)
		wrapped = append(wrapped, trimmed...)
		wrapped = append(wrapped, '}')
		trimmed = wrapped
	}

	var f jsonFile
	if err := bson.UnmarshalExtJSON(trimmed, false, &f); err != nil {
		return nil, fmt.Errorf("failed to parse JSON seed: %w", err)
	}

	return &File{
		Database:   f.Database,
		Collection: f.Collection,
		Documents:  f.Documents,
	}, nil
}
