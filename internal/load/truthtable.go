package load

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed truthtable.schema.json
var truthTableSchemaJSON string

const truthTableSchemaURL = "https://qcacontra.schemas.local/truthtable.schema.json"

var truthTableSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(truthTableSchemaURL, strings.NewReader(truthTableSchemaJSON)); err != nil {
		panic(fmt.Sprintf("truth table schema load failed: %v", err))
	}
	return c.MustCompile(truthTableSchemaURL)
}

func parseTableJSON(data []byte) (*model.TruthTable, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := truthTableSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %v", ErrMalformed, err)
	}

	var tt model.TruthTable
	if err := json.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := checkTable(&tt); err != nil {
		return nil, err
	}
	return &tt, nil
}

// parseTableYAML converts YAML to JSON so both formats share one schema and decoder
func parseTableYAML(data []byte) (*model.TruthTable, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return parseTableJSON(asJSON)
}

// checkTable enforces what the schema cannot: unique row ids and configurations
func checkTable(tt *model.TruthTable) error {
	ids := make(map[string]bool, len(tt.Rows))
	configs := make(map[string]string, len(tt.Rows))

	for _, row := range tt.Rows {
		if ids[row.ID] {
			return fmt.Errorf("%w: duplicate row id %q", ErrMalformed, row.ID)
		}
		ids[row.ID] = true

		if len(tt.Conditions) == 0 || len(row.Conditions) == 0 {
			continue
		}
		for _, c := range tt.Conditions {
			if _, ok := row.Conditions[c]; !ok {
				return fmt.Errorf("%w: row %s has no value for condition %q", ErrMalformed, row.ID, c)
			}
		}
		key := row.Key(tt.Conditions)
		if prev, dup := configs[key]; dup {
			return fmt.Errorf("%w: rows %s and %s share configuration %s", ErrMalformed, prev, row.ID, key)
		}
		configs[key] = row.ID
	}
	return nil
}
