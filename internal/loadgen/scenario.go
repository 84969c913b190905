package loadgen

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const (
	scenarioSchemaResourceNameConstant      = "scenario.schema.json"
	scenarioSchemaUnmarshalTemplateConstant = "unable to parse scenario schema: %w"
	scenarioSchemaResourceTemplateConstant  = "unable to register scenario schema: %w"
	scenarioSchemaCompileTemplateConstant   = "unable to compile scenario schema: %w"
	scenarioDecodeTemplateConstant          = "unable to decode scenario file: %w"
	scenarioRoundTripTemplateConstant       = "unable to normalize scenario document: %w"
	scenarioValidationTemplateConstant      = "scenario validation failed: %w"

	// ScenarioModeRate issues tasks at a fixed rate for a wall-clock duration.
	ScenarioModeRate = "rate"
	// ScenarioModeBurst issues a fixed batch under a concurrency bound.
	ScenarioModeBurst = "burst"

	defaultScenarioMeterConstant    = "api_calls"
	defaultScenarioQuantityConstant = 1
)

//go:embed scenario.schema.json
var scenarioSchemaContent []byte

var (
	compiledScenarioSchema *jsonschema.Schema
	scenarioSchemaOnce     sync.Once
	scenarioSchemaError    error
)

// Scenario describes one load-test run loaded from a YAML definition file.
type Scenario struct {
	Name              string `yaml:"name"`
	Mode              string `yaml:"mode"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	DurationSeconds   int    `yaml:"duration_seconds"`
	Concurrency       int    `yaml:"concurrency"`
	TotalRequests     int    `yaml:"total_requests"`
	Meter             string `yaml:"meter"`
	Quantity          int    `yaml:"quantity"`
}

// ParseScenario validates raw YAML scenario content against the embedded schema
// and decodes it, applying meter and quantity defaults.
func ParseScenario(scenarioContent []byte) (Scenario, error) {
	if schemaError := compileScenarioSchema(); schemaError != nil {
		return Scenario{}, schemaError
	}

	var genericDocument map[string]any
	if decodeError := yaml.Unmarshal(scenarioContent, &genericDocument); decodeError != nil {
		return Scenario{}, fmt.Errorf(scenarioDecodeTemplateConstant, decodeError)
	}

	normalizedContent, marshalError := json.Marshal(genericDocument)
	if marshalError != nil {
		return Scenario{}, fmt.Errorf(scenarioRoundTripTemplateConstant, marshalError)
	}
	normalizedDocument, unmarshalError := jsonschema.UnmarshalJSON(bytes.NewReader(normalizedContent))
	if unmarshalError != nil {
		return Scenario{}, fmt.Errorf(scenarioRoundTripTemplateConstant, unmarshalError)
	}

	if validationError := compiledScenarioSchema.Validate(normalizedDocument); validationError != nil {
		return Scenario{}, fmt.Errorf(scenarioValidationTemplateConstant, validationError)
	}

	var parsedScenario Scenario
	if decodeError := yaml.Unmarshal(scenarioContent, &parsedScenario); decodeError != nil {
		return Scenario{}, fmt.Errorf(scenarioDecodeTemplateConstant, decodeError)
	}

	if len(strings.TrimSpace(parsedScenario.Meter)) == 0 {
		parsedScenario.Meter = defaultScenarioMeterConstant
	}
	if parsedScenario.Quantity < 1 {
		parsedScenario.Quantity = defaultScenarioQuantityConstant
	}

	return parsedScenario, nil
}

func compileScenarioSchema() error {
	scenarioSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		schemaDocument, unmarshalError := jsonschema.UnmarshalJSON(bytes.NewReader(scenarioSchemaContent))
		if unmarshalError != nil {
			scenarioSchemaError = fmt.Errorf(scenarioSchemaUnmarshalTemplateConstant, unmarshalError)
			return
		}

		if resourceError := compiler.AddResource(scenarioSchemaResourceNameConstant, schemaDocument); resourceError != nil {
			scenarioSchemaError = fmt.Errorf(scenarioSchemaResourceTemplateConstant, resourceError)
			return
		}

		compiledSchema, compileError := compiler.Compile(scenarioSchemaResourceNameConstant)
		if compileError != nil {
			scenarioSchemaError = fmt.Errorf(scenarioSchemaCompileTemplateConstant, compileError)
			return
		}
		compiledScenarioSchema = compiledSchema
	})

	return scenarioSchemaError
}
