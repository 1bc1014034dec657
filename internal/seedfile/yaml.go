package seedfile

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

func parseYAML(data []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML seed: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("failed to parse YAML seed: empty file")
	}

	top := root.Content[0]
	switch top.Kind {
	case yaml.SequenceNode:
		docs, err := yamlDocuments(top)
		if err != nil {
			return nil, err
		}
		return &File{Documents: docs}, nil
	case yaml.MappingNode:
		return yamlSeedFile(top)
	default:
		return nil, fmt.Errorf("failed to parse YAML seed: line %d: expected a mapping or a sequence", top.Line)
	}
}

func yamlSeedFile(node *yaml.Node) (*File, error) {
	f := &File{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "database_name":
			f.Database = value.Value
		case "collection_name":
			f.Collection = value.Value
		case "documents":
			if value.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("failed to parse YAML seed: line %d: documents must be a sequence", value.Line)
			}
			docs, err := yamlDocuments(value)
			if err != nil {
				return nil, err
			}
			f.Documents = docs
		}
	}
	return f, nil
}

func yamlDocuments(seq *yaml.Node) ([]bson.D, error) {
	docs := make([]bson.D, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("failed to parse YAML seed: line %d: document must be a mapping", item.Line)
		}
		doc, err := yamlDocument(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// yamlDocument keeps the key order of the mapping.
func yamlDocument(node *yaml.Node) (bson.D, error) {
	doc := make(bson.D, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		value, err := yamlValue(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: node.Content[i].Value, Value: value})
	}
	return doc, nil
}

func yamlValue(node *yaml.Node) (interface{}, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return yamlDocument(node)
	case yaml.SequenceNode:
		arr := make(bson.A, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	default:
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to parse YAML seed: line %d: %w", node.Line, err)
		}
		return v, nil
	}
}
