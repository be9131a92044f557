package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
)

// readInput returns the document text of a command: the argument itself,
// the file named by an "@path" argument, or stdin when the argument is
// missing or "-".
func readInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	if path, ok := strings.CutPrefix(args[0], "@"); ok {
		return os.ReadFile(path)
	}
	return []byte(args[0]), nil
}

// parseDocuments decodes a JSON object or an array of objects. Integral
// numbers become int64 and other numbers float64.
func parseDocuments(data []byte) (docs []docstore.Document, single bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, false, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, false, fmt.Errorf("invalid JSON: trailing data after document")
	}

	switch v := raw.(type) {
	case map[string]any:
		return []docstore.Document{convertDocument(v)}, true, nil
	case []any:
		docs := make([]docstore.Document, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false, fmt.Errorf("document %d: expected object, got %T", i, item)
			}
			docs[i] = convertDocument(m)
		}
		return docs, false, nil
	default:
		return nil, false, fmt.Errorf("expected object or array of objects, got %T", raw)
	}
}

func convertDocument(m map[string]any) docstore.Document {
	doc := make(docstore.Document, len(m))
	for k, v := range m {
		doc[k] = convertNumber(v)
	}
	return doc
}

// convertNumber turns a json.Number into int64 or float64. Other values,
// nested objects and arrays included, are returned as decoded; the
// normalizer rejects the ones it cannot store.
func convertNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
