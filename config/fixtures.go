package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/guyvdb/drepo/record"
)

// Fixtures maps a model name to the records to create for it, in order.
type Fixtures map[string][]record.Attributes

// LoadFixtures reads a fixtures file.
//
//	person:
//	  - {id: 1, name: Ann, age: 34}
//	  - {name: Bob, age: 19}
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var raw map[string][]map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}

	fixtures := make(Fixtures, len(raw))
	for model, rows := range raw {
		records := make([]record.Attributes, 0, len(rows))
		for _, row := range rows {
			records = append(records, record.Attributes(row))
		}
		fixtures[model] = records
	}
	return fixtures, nil
}
