package support

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/code11/cmd/code11/cmd"
	"github.com/cucumber/godog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterCommonSteps registers CLI step definitions.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "code11 ([^"]*)"$`, testCtx.iRunCode11)
	sc.Step(`^I run "code11 ([^"]*)" in the temp directory$`, testCtx.iRunCode11InTempDir)
	sc.Step(`^a config file "([^"]*)" containing:$`, testCtx.aConfigFileContaining)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the error should contain "([^"]*)"$`, testCtx.theErrorShouldContain)
	sc.Step(`^the file "([^"]*)" should exist in the temp directory$`, testCtx.theFileShouldExistInTempDir)
}

// runCommand executes the CLI in-process with args, substituting {tmp} with
// the scenario's temp directory.
func (testCtx *TestContext) runCommand(argLine string) error {
	argLine = strings.ReplaceAll(argLine, "{tmp}", testCtx.TempDir)
	args := strings.Fields(argLine)

	root := cmd.GetRootCommand()
	resetFlags(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	start := time.Now()
	err := root.Execute()

	testCtx.LastCommand = "code11 " + argLine
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = out.String()
	testCtx.LastError = err
	return nil
}

// resetFlags restores every flag of the command tree to its default, since
// pflag keeps parsed values between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func (testCtx *TestContext) iRunCode11(argLine string) error {
	return testCtx.runCommand(argLine)
}

func (testCtx *TestContext) iRunCode11InTempDir(argLine string) error {
	prev, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(testCtx.TempDir); err != nil {
		return err
	}
	defer func() { _ = os.Chdir(prev) }()

	return testCtx.runCommand(argLine)
}

func (testCtx *TestContext) aConfigFileContaining(name string, content *godog.DocString) error {
	path := testCtx.TempPath(name)
	if err := os.WriteFile(path, []byte(content.Content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	testCtx.TrackFile(path)
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\n%s", testCtx.LastCommand, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded unexpectedly:\n%s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output of %q does not contain %q:\n%s", testCtx.LastCommand, text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldContain(text string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q did not fail", testCtx.LastCommand)
	}
	if !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("error %q does not contain %q", testCtx.LastError, text)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExistInTempDir(name string) error {
	if _, err := os.Stat(testCtx.TempPath(name)); err != nil {
		return fmt.Errorf("expected file %s: %w", name, err)
	}
	return nil
}
