package loadgen_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/dripcheck/internal/loadgen"
)

const scenarioSubtestNameTemplateConstant = "%d_%s"

func TestParseScenario(testInstance *testing.T) {
	testCases := []struct {
		name             string
		scenarioContent  string
		expectError      bool
		expectedScenario loadgen.Scenario
	}{
		{
			name: "rate_scenario_with_defaults",
			scenarioContent: "name: charge_stream\n" +
				"mode: rate\n" +
				"requests_per_second: 25\n" +
				"duration_seconds: 10\n",
			expectError: false,
			expectedScenario: loadgen.Scenario{
				Name:              "charge_stream",
				Mode:              loadgen.ScenarioModeRate,
				RequestsPerSecond: 25,
				DurationSeconds:   10,
				Meter:             "api_calls",
				Quantity:          1,
			},
		},
		{
			name: "burst_scenario_fully_specified",
			scenarioContent: "name: charge_burst\n" +
				"mode: burst\n" +
				"concurrency: 8\n" +
				"total_requests: 200\n" +
				"meter: tokens\n" +
				"quantity: 5\n",
			expectError: false,
			expectedScenario: loadgen.Scenario{
				Name:          "charge_burst",
				Mode:          loadgen.ScenarioModeBurst,
				Concurrency:   8,
				TotalRequests: 200,
				Meter:         "tokens",
				Quantity:      5,
			},
		},
		{
			name:            "missing_mode_rejected",
			scenarioContent: "name: broken\n",
			expectError:     true,
		},
		{
			name: "unknown_mode_rejected",
			scenarioContent: "name: broken\n" +
				"mode: drizzle\n",
			expectError: true,
		},
		{
			name: "negative_rate_rejected",
			scenarioContent: "name: broken\n" +
				"mode: rate\n" +
				"requests_per_second: -5\n",
			expectError: true,
		},
		{
			name: "unknown_field_rejected",
			scenarioContent: "name: broken\n" +
				"mode: rate\n" +
				"warp_factor: 9\n",
			expectError: true,
		},
		{
			name:            "malformed_yaml_rejected",
			scenarioContent: ": definitely not yaml {",
			expectError:     true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(scenarioSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			parsedScenario, parseError := loadgen.ParseScenario([]byte(testCase.scenarioContent))
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedScenario, parsedScenario)
		})
	}
}
