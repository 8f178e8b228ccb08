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

package pipeline

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
	"github.com/kineticfire-labs/docker-pipeline/pkg/testrun"
)

// fakeStepImplementation records the order steps execute in and
// fails whichever step the test arms.
type fakeStepImplementation struct {
	sequence []string

	buildErr       error
	testErr        error
	conditionalErr error

	testResult *testrun.Result
}

func (f *fakeStepImplementation) ExecuteBuildStep(
	_ *Options, _ *spec.Pipeline, ctx Context,
) (Context, error) {
	f.sequence = append(f.sequence, "build")
	if f.buildErr != nil {
		return ctx, f.buildErr
	}
	return ctx, nil
}

func (f *fakeStepImplementation) ExecuteTestStep(
	_ *Options, _ *spec.Pipeline, ctx Context,
) (Context, error) {
	f.sequence = append(f.sequence, "test")
	if f.testErr != nil {
		return ctx, f.testErr
	}
	if f.testResult != nil {
		ctx = ctx.WithTestResult(f.testResult)
	}
	return ctx, nil
}

func (f *fakeStepImplementation) ExecuteConditionalStep(
	_ *Options, _ *spec.Pipeline, ctx Context,
) (Context, error) {
	f.sequence = append(f.sequence, "conditional")
	return ctx, f.conditionalErr
}

func (f *fakeStepImplementation) ExecuteAlwaysStep(
	_ *Options, _ *spec.Pipeline, ctx Context, _, _ bool,
) Context {
	f.sequence = append(f.sequence, "always")
	return ctx
}

func testPipeline(impl pipelineImplementation) *Pipeline {
	return &Pipeline{
		Options:        Options{Logger: logrus.New()},
		implementation: impl,
	}
}

func TestRunSequence(t *testing.T) {
	impl := &fakeStepImplementation{}
	p := testPipeline(impl)

	ctx, err := p.Run(&spec.Pipeline{Name: "test"})
	require.NoError(t, err)
	require.Equal(t, "test", ctx.PipelineName)
	require.Equal(t, []string{"build", "test", "conditional", "always"}, impl.sequence)
}

func TestRunAlwaysRunsOnFatalBuildError(t *testing.T) {
	impl := &fakeStepImplementation{buildErr: errors.New("build exploded")}
	p := testPipeline(impl)

	_, err := p.Run(&spec.Pipeline{Name: "test"})
	require.Error(t, err)
	// The fatal error skips test and conditional but not always
	require.Equal(t, []string{"build", "always"}, impl.sequence)
}

func TestRunAlwaysRunsOnFatalTestStepError(t *testing.T) {
	impl := &fakeStepImplementation{testErr: errors.New("stack would not start")}
	p := testPipeline(impl)

	_, err := p.Run(&spec.Pipeline{Name: "test"})
	require.Error(t, err)
	require.Equal(t, []string{"build", "test", "always"}, impl.sequence)
}

func TestRunAlwaysRunsOnConditionalError(t *testing.T) {
	impl := &fakeStepImplementation{
		testResult:     &testrun.Result{Passed: true, Total: 1, Succeeded: 1},
		conditionalErr: errors.New("no built image"),
	}
	p := testPipeline(impl)

	_, err := p.Run(&spec.Pipeline{Name: "test"})
	require.Error(t, err)
	require.Equal(t, []string{"build", "test", "conditional", "always"}, impl.sequence)
}

func TestRunRejectsInvalidSpec(t *testing.T) {
	impl := &fakeStepImplementation{}
	p := testPipeline(impl)

	// Configuration errors surface before any step runs
	_, err := p.Run(nil)
	require.Error(t, err)
	_, err = p.Run(&spec.Pipeline{})
	require.Error(t, err)
	_, err = p.Run(&spec.Pipeline{Name: "test", Image: &spec.Image{Name: "myapp"}})
	require.Error(t, err)
	require.Empty(t, impl.sequence)
}
