package flags

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrFlagNotDefined indicates that the requested flag is not present on the command.
var ErrFlagNotDefined = errors.New("flag not defined")

// BoolFlag returns the boolean value of the named flag and whether the user changed it.
func BoolFlag(command *cobra.Command, name string) (bool, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return false, false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetBool(name)
	if valueError != nil {
		return false, false, valueError
	}
	return value, flag.Changed, nil
}

// StringFlag returns the string value of the named flag and whether the user changed it.
func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return "", false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetString(name)
	if valueError != nil {
		return "", false, valueError
	}
	return value, flag.Changed, nil
}

// IntFlag returns the integer value of the named flag and whether the user changed it.
func IntFlag(command *cobra.Command, name string) (int, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return 0, false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetInt(name)
	if valueError != nil {
		return 0, false, valueError
	}
	return value, flag.Changed, nil
}

// StringSliceFlag returns the string-slice value of the named flag and whether the user changed it.
func StringSliceFlag(command *cobra.Command, name string) ([]string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return nil, false, ErrFlagNotDefined
	}
	value, valueError := flagSet.GetStringSlice(name)
	if valueError != nil {
		return nil, false, valueError
	}
	return value, flag.Changed, nil
}

func locateFlag(command *cobra.Command, name string) (*pflag.FlagSet, *pflag.Flag) {
	if command == nil {
		return nil, nil
	}

	candidateSets := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if rootCommand := command.Root(); rootCommand != nil {
		candidateSets = append(candidateSets, rootCommand.PersistentFlags())
	}

	for _, candidateSet := range candidateSets {
		if candidateSet == nil {
			continue
		}
		if flag := candidateSet.Lookup(name); flag != nil {
			return candidateSet, flag
		}
	}

	return nil, nil
}
