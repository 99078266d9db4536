package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MojoAuth/connector-identity/internal/identity"
)

// namedConfig is one connector configuration and where it came from.
type namedConfig struct {
	Source string
	Config identity.InstanceConfig
}

// readConfigFile decodes every YAML or JSON document in path. A document is
// either one mapping or a sequence of mappings.
func readConfigFile(path string) ([]namedConfig, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}

	return decodeConfigs(path, r)
}

func decodeConfigs(source string, r io.Reader) ([]namedConfig, error) {
	dec := yaml.NewDecoder(r)

	var docs []any
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", source, err)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}

	var out []namedConfig
	for d, doc := range docs {
		label := source
		if len(docs) > 1 {
			label = fmt.Sprintf("%s@%d", source, d)
		}

		switch v := doc.(type) {
		case map[string]any:
			out = append(out, namedConfig{Source: label, Config: v})
		case []any:
			for i, item := range v {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s#%d: expected a mapping, got %T", label, i, item)
				}
				out = append(out, namedConfig{Source: fmt.Sprintf("%s#%d", label, i), Config: m})
			}
		default:
			return nil, fmt.Errorf("%s: expected a mapping or a list of mappings, got %T", label, doc)
		}
	}

	return out, nil
}
