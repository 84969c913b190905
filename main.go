package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tyemirov/dripcheck/cmd/cli"
	"github.com/tyemirov/dripcheck/internal/utils"
)

const (
	exitErrorTemplateConstant = "%v\n"

	exitCodeFailureConstant            = 1
	exitCodeConfigurationErrorConstant = 2
)

// main executes the dripcheck command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)

	var configurationError *utils.ConfigurationError
	if errors.As(executionError, &configurationError) {
		os.Exit(exitCodeConfigurationErrorConstant)
	}
	os.Exit(exitCodeFailureConstant)
}
