package flags_test

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	flagutils "github.com/tyemirov/dripcheck/internal/utils/flags"
)

const (
	testBoolFlagNameConstant        = "quick"
	testStringFlagNameConstant      = "format"
	testIntFlagNameConstant         = "timeout"
	testStringSliceFlagNameConstant = "only"
	testMissingFlagNameConstant     = "missing"
	testStringFlagValueConstant     = "json"
	flagsSubtestNameTemplate        = "%d_%s"
)

func newFlagTestCommand() *cobra.Command {
	command := &cobra.Command{Use: "flagtest", RunE: func(command *cobra.Command, arguments []string) error { return nil }}
	command.Flags().Bool(testBoolFlagNameConstant, false, "")
	command.Flags().String(testStringFlagNameConstant, "", "")
	command.Flags().Int(testIntFlagNameConstant, 0, "")
	command.Flags().StringSlice(testStringSliceFlagNameConstant, nil, "")
	return command
}

func TestFlagAccessors(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		verify    func(testInstance *testing.T, command *cobra.Command)
	}{
		{
			name:      "bool_flag_changed",
			arguments: []string{"--quick"},
			verify: func(testInstance *testing.T, command *cobra.Command) {
				value, changed, flagError := flagutils.BoolFlag(command, testBoolFlagNameConstant)
				require.NoError(testInstance, flagError)
				require.True(testInstance, value)
				require.True(testInstance, changed)
			},
		},
		{
			name:      "string_flag_unchanged",
			arguments: nil,
			verify: func(testInstance *testing.T, command *cobra.Command) {
				value, changed, flagError := flagutils.StringFlag(command, testStringFlagNameConstant)
				require.NoError(testInstance, flagError)
				require.Empty(testInstance, value)
				require.False(testInstance, changed)
			},
		},
		{
			name:      "string_flag_changed",
			arguments: []string{"--format", testStringFlagValueConstant},
			verify: func(testInstance *testing.T, command *cobra.Command) {
				value, changed, flagError := flagutils.StringFlag(command, testStringFlagNameConstant)
				require.NoError(testInstance, flagError)
				require.Equal(testInstance, testStringFlagValueConstant, value)
				require.True(testInstance, changed)
			},
		},
		{
			name:      "int_flag_changed",
			arguments: []string{"--timeout", "15"},
			verify: func(testInstance *testing.T, command *cobra.Command) {
				value, changed, flagError := flagutils.IntFlag(command, testIntFlagNameConstant)
				require.NoError(testInstance, flagError)
				require.Equal(testInstance, 15, value)
				require.True(testInstance, changed)
			},
		},
		{
			name:      "string_slice_flag_splits_on_commas",
			arguments: []string{"--only", "webhook,charge", "--only", "customer"},
			verify: func(testInstance *testing.T, command *cobra.Command) {
				value, changed, flagError := flagutils.StringSliceFlag(command, testStringSliceFlagNameConstant)
				require.NoError(testInstance, flagError)
				require.Equal(testInstance, []string{"webhook", "charge", "customer"}, value)
				require.True(testInstance, changed)
			},
		},
		{
			name:      "undefined_flag_reports_error",
			arguments: nil,
			verify: func(testInstance *testing.T, command *cobra.Command) {
				_, _, flagError := flagutils.StringFlag(command, testMissingFlagNameConstant)
				require.ErrorIs(testInstance, flagError, flagutils.ErrFlagNotDefined)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(flagsSubtestNameTemplate, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			command := newFlagTestCommand()
			command.SetArgs(testCase.arguments)
			require.NoError(testInstance, command.Execute())
			testCase.verify(testInstance, command)
		})
	}
}
