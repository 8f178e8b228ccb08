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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

type fakeImplementation struct {
	passed     bool
	executeErr error
	result     *Result
	collectErr error
}

func (f *fakeImplementation) Execute(*Options, *spec.Test) (bool, error) {
	return f.passed, f.executeErr
}

func (f *fakeImplementation) CollectResult(*Options, *spec.Test, bool) (*Result, error) {
	return f.result, f.collectErr
}

func TestRun(t *testing.T) {
	test := &spec.Test{Command: []string{"make", "test"}}

	runner := NewRunner()
	runner.Options.Logger = logrus.New()
	runner.implementation = &fakeImplementation{
		passed: true,
		result: &Result{Passed: true, Total: 3, Succeeded: 3},
	}
	result, err := runner.Run(test)
	require.NoError(t, err)
	require.True(t, result.Passed)
	require.Equal(t, 3, result.Total)

	// Failing to even start the command is an error
	runner.implementation = &fakeImplementation{executeErr: errors.New("not found")}
	_, err = runner.Run(test)
	require.Error(t, err)

	// No command configured is an error
	_, err = runner.Run(&spec.Test{})
	require.Error(t, err)
}

func TestCollectResultWithoutReports(t *testing.T) {
	ri := defaultRunnerImplementation{}
	opts := &Options{Logger: logrus.New()}

	result, err := ri.CollectResult(opts, &spec.Test{}, true)
	require.NoError(t, err)
	require.Equal(t, &Result{Passed: true, Total: 1, Succeeded: 1}, result)

	result, err = ri.CollectResult(opts, &spec.Test{}, false)
	require.NoError(t, err)
	require.Equal(t, &Result{Passed: false, Total: 1, Failed: 1}, result)
}

func TestCollectResultFromJUnitReports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "suite1.xml"),
		[]byte(`<testsuite tests="5" failures="1" errors="0" skipped="1"></testsuite>`),
		0o600,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "suite2.xml"),
		[]byte(`<testsuites tests="2" failures="0">
  <testsuite tests="2" failures="0" errors="0" skipped="0"></testsuite>
</testsuites>`),
		0o600,
	))

	ri := defaultRunnerImplementation{}
	opts := &Options{Logger: logrus.New()}
	test := &spec.Test{ReportsDir: dir}

	result, err := ri.CollectResult(opts, test, false)
	require.NoError(t, err)
	require.Equal(t, 7, result.Total)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 5, result.Succeeded)
	require.False(t, result.Passed)
	require.LessOrEqual(t, result.Succeeded+result.Failed+result.Skipped, result.Total)

	// Green reports but a failed command still fail the run
	all := filepath.Join(t.TempDir(), "green")
	require.NoError(t, os.MkdirAll(all, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(all, "suite.xml"),
		[]byte(`<testsuite tests="2" failures="0" errors="0" skipped="0"></testsuite>`),
		0o600,
	))
	result, err = ri.CollectResult(opts, &spec.Test{ReportsDir: all}, false)
	require.NoError(t, err)
	require.False(t, result.Passed)

	// Missing reports are an error
	_, err = ri.CollectResult(opts, &spec.Test{ReportsDir: t.TempDir()}, true)
	require.Error(t, err)
}
