package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Document is the wire form of the graph: the exact shape of data.json.
// Marshaling a Document always produces clean id-pair links, so it
// doubles as the export shape.
type Document struct {
	Nodes []*Node `json:"nodes"`
	Links []Link  `json:"links"`
}

// documentSchema checks the structural envelope only. Link types and
// status completeness are deliberately not constrained here: a
// malformed link must load and then surface as a validation finding.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["nodes", "links"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "name": {"type": "string"}
        }
      }
    },
    "links": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {"anyOf": [{"type": "string"}, {"type": "object"}]},
          "target": {"anyOf": [{"type": "string"}, {"type": "object"}]},
          "type": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("data.schema.json", strings.NewReader(documentSchema)); err != nil {
		panic(fmt.Sprintf("graph: adding document schema: %v", err))
	}
	return c.MustCompile("data.schema.json")
}()

// ParseDocument decodes and schema-checks a data.json payload and
// returns the normalized in-memory graph.
func ParseDocument(data []byte) (*Graph, error) {
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("document shape: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return New(doc.Nodes, doc.Links), nil
}

// LoadFile reads and parses a data.json file.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	g, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return g, nil
}

// AsDocument projects the graph back to its wire form.
func (g *Graph) AsDocument() *Document {
	return &Document{Nodes: g.Nodes, Links: g.Links}
}

// MarshalDocument renders a document in the committed file format:
// two-space indent, trailing newline.
func MarshalDocument(doc *Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return append(out, '\n'), nil
}
