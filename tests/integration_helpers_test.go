package tests

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationCommandTimeout           = 90 * time.Second
	integrationGoExecutableConstant     = "go"
	integrationRunSubcommandConstant    = "run"
	integrationModulePathConstant       = "."
	integrationEnvironmentAssignmentSep = "="
)

type integrationResult struct {
	standardOutput string
	standardError  string
	runError       error
}

func repositoryRootDirectory(testInstance *testing.T) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	return filepath.Dir(workingDirectory)
}

// runIntegrationCommand executes the CLI through go run with extra environment assignments appended to the process environment.
func runIntegrationCommand(testInstance *testing.T, environment map[string]string, arguments ...string) integrationResult {
	testInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), integrationCommandTimeout)
	defer cancel()

	commandArguments := append([]string{integrationRunSubcommandConstant, integrationModulePathConstant}, arguments...)
	command := exec.CommandContext(executionContext, integrationGoExecutableConstant, commandArguments...)
	command.Dir = repositoryRootDirectory(testInstance)
	commandEnvironment := append([]string{}, os.Environ()...)
	for name, value := range environment {
		commandEnvironment = append(commandEnvironment, name+integrationEnvironmentAssignmentSep+value)
	}
	command.Env = commandEnvironment

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError
	runError := command.Run()

	return integrationResult{
		standardOutput: standardOutput.String(),
		standardError:  standardError.String(),
		runError:       runError,
	}
}

func requireSuccessfulRun(testInstance *testing.T, result integrationResult) {
	testInstance.Helper()
	if result.runError != nil {
		testInstance.Fatalf("command failed: %v\nstdout:\n%s\nstderr:\n%s", result.runError, result.standardOutput, result.standardError)
	}
}
