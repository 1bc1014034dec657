package tempmongo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lmorchard/tempmongo-go/internal/seedfile"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrSeedTarget = errors.New("tempmongo: seed needs a database and collection name")

// Seed is a batch of documents destined for one collection.
type Seed struct {
	Database   string
	Collection string
	Documents  []bson.D
}

// NewSeed prepares documents for database.collection.
func NewSeed(database, collection string, documents []bson.D) *Seed {
	return &Seed{Database: database, Collection: collection, Documents: documents}
}

// SeedFileOptions control LoadSeedFile. Database and Collection override
// the target named inside the file.
type SeedFileOptions struct {
	Database   string
	Collection string
	// Format forces a file format; detected from the extension when empty.
	Format string
	// Sheet selects the XLSX worksheet.
	Sheet string
}

// ReadSeedFile parses a JSON, YAML, CSV or XLSX file into a Seed.
func ReadSeedFile(path string, opts SeedFileOptions) (*Seed, error) {
	format := seedfile.DetectFormat(path)
	if opts.Format != "" {
		var err error
		if format, err = seedfile.ParseFormat(opts.Format); err != nil {
			return nil, err
		}
	}

	f, err := seedfile.Load(format, path, &seedfile.Options{Sheet: opts.Sheet})
	if err != nil {
		return nil, err
	}

	s := NewSeed(f.Database, f.Collection, f.Documents)
	if opts.Database != "" {
		s.Database = opts.Database
	}
	if opts.Collection != "" {
		s.Collection = opts.Collection
	}
	return s, nil
}

// Apply inserts the documents in order.
func (s *Seed) Apply(ctx context.Context, client *mongo.Client) error {
	if s.Database == "" || s.Collection == "" {
		return ErrSeedTarget
	}
	if len(s.Documents) == 0 {
		return nil
	}

	docs := make([]interface{}, len(s.Documents))
	for n, d := range s.Documents {
		docs[n] = d
	}

	coll := client.Database(s.Database).Collection(s.Collection)
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed %s.%s: %w", s.Database, s.Collection, err)
	}
	return nil
}

// LoadSeed inserts s through the instance client.
func (i *Instance) LoadSeed(ctx context.Context, s *Seed) error {
	if err := s.Apply(ctx, i.client); err != nil {
		return err
	}
	i.log.Debugf("Seeded %d document(s) into %s.%s", len(s.Documents), s.Database, s.Collection)
	return nil
}

// LoadSeedFile reads a seed file and inserts it, returning what was loaded.
func (i *Instance) LoadSeedFile(ctx context.Context, path string, opts SeedFileOptions) (*Seed, error) {
	s, err := ReadSeedFile(path, opts)
	if err != nil {
		return nil, err
	}
	if err := i.LoadSeed(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// PrintDocuments writes every document of database.collection to w as
// relaxed extended JSON, one per line, and returns how many were written.
func (i *Instance) PrintDocuments(ctx context.Context, w io.Writer, database, collection string) (int, error) {
	cursor, err := i.client.Database(database).Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to query %s.%s: %w", database, collection, err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return count, fmt.Errorf("failed to decode document: %w", err)
		}
		line, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return count, fmt.Errorf("failed to render document: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(line)); err != nil {
			return count, err
		}
		count++
	}

	return count, cursor.Err()
}
