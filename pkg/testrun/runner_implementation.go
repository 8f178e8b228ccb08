/*
Copyright 2025 KineticFire Labs

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package testrun

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/release-utils/command"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

type runnerImplementation interface {
	// Execute runs the test command. The bool reports whether the
	// command exited successfully; the error is reserved for
	// failing to run it at all.
	Execute(*Options, *spec.Test) (bool, error)

	// CollectResult builds the Result, reading report files when
	// the spec points at them.
	CollectResult(*Options, *spec.Test, bool) (*Result, error)
}

type defaultRunnerImplementation struct{}

func (ri *defaultRunnerImplementation) Execute(opts *Options, test *spec.Test) (bool, error) {
	cmd := command.NewWithWorkDir(test.WorkDir, test.Command[0], test.Command[1:]...)

	opts.Logger.Infof("Executing test command: %s", strings.Join(test.Command, " "))

	var status *command.Status
	var err error
	if opts.Verbose {
		status, err = cmd.Run()
	} else {
		status, err = cmd.RunSilent()
	}
	if err != nil {
		return false, fmt.Errorf("running test command: %w", err)
	}
	return status.Success(), nil
}

func (ri *defaultRunnerImplementation) CollectResult(
	opts *Options, test *spec.Test, passed bool,
) (*Result, error) {
	if test.ReportsDir == "" {
		// No reports to read, the command exit status is the
		// whole outcome
		result := &Result{Passed: passed, Total: 1}
		if passed {
			result.Succeeded = 1
		} else {
			result.Failed = 1
		}
		return result, nil
	}

	result, err := parseJUnitReports(test.ReportsDir)
	if err != nil {
		return nil, err
	}
	// A failing command trumps green reports, tests may have
	// aborted before writing them all
	result.Passed = passed && result.Failed == 0
	return result, nil
}

// junitSuite covers both <testsuite> and the <testsuites> wrapper
// element found in JUnit XML reports.
type junitSuite struct {
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

func parseJUnitReports(dir string) (*Result, error) {
	reports, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("globbing report files: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no junit reports found in %s", dir)
	}

	result := &Result{}
	for _, path := range reports {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading report %s: %w", path, err)
		}
		suite := junitSuite{}
		if err := xml.Unmarshal(data, &suite); err != nil {
			return nil, fmt.Errorf("parsing report %s: %w", path, err)
		}
		addSuite(result, &suite)
	}
	result.Succeeded = result.Total - result.Failed - result.Skipped
	return result, nil
}

func addSuite(result *Result, suite *junitSuite) {
	// A <testsuites> wrapper repeats its children's totals in its
	// own attributes, so only leaves count
	if len(suite.Suites) > 0 {
		for i := range suite.Suites {
			addSuite(result, &suite.Suites[i])
		}
		return
	}
	result.Total += suite.Tests
	result.Failed += suite.Failures + suite.Errors
	result.Skipped += suite.Skipped
}
