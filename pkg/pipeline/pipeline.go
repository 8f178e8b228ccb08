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

// Package pipeline drives one build → test → conditional → always
// sequence. Steps are optional; an absent spec section makes its
// step a passthrough of the unchanged context. Build and stack
// start failures are fatal, test failures are recorded data, and
// the always step runs no matter what happened before it.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kineticfire-labs/docker-pipeline/pkg/engine"
	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
	"github.com/kineticfire-labs/docker-pipeline/pkg/testrun"
)

// Pipeline executes pipeline specs.
type Pipeline struct {
	Options        Options
	implementation pipelineImplementation
}

// TestRunner runs the pipeline's test command. Satisfied by
// testrun.Runner.
type TestRunner interface {
	Run(*spec.Test) (*testrun.Result, error)
}

type Options struct {
	// Engine performs the container operations.
	Engine engine.Engine

	// Tests runs the test command.
	Tests TestRunner

	Logger *logrus.Logger
}

// New returns a pipeline bound to the given container engine, with
// the default test runner and step implementation.
func New(eng engine.Engine) *Pipeline {
	return &Pipeline{
		Options: Options{
			Engine: eng,
			Tests:  testrun.NewRunner(),
			Logger: logrus.New(),
		},
		implementation: &defaultPipelineImplementation{},
	}
}

// Run executes the spec. The returned context reflects everything
// that happened, including on the error path: a fatal build or
// stack start error aborts the remaining sequence but the always
// step still runs before Run returns.
func (p *Pipeline) Run(ps *spec.Pipeline) (Context, error) {
	if ps == nil {
		return Context{}, fmt.Errorf("pipeline spec cannot be null")
	}
	ctx := NewContext(ps.Name)
	if err := ps.Validate(); err != nil {
		return ctx, fmt.Errorf("validating pipeline spec: %w", err)
	}

	p.Options.Logger.Infof("Starting pipeline %s", ps.Name)
	ctx, runErr := p.runSteps(ps, ctx)

	passed, ran := ctx.TestsPassed()
	ctx = p.implementation.ExecuteAlwaysStep(&p.Options, ps, ctx, ran, passed)

	if runErr != nil {
		return ctx, runErr
	}
	p.Options.Logger.Infof("Pipeline %s finished", ps.Name)
	return ctx, nil
}

func (p *Pipeline) runSteps(ps *spec.Pipeline, ctx Context) (Context, error) {
	ctx, err := p.implementation.ExecuteBuildStep(&p.Options, ps, ctx)
	if err != nil {
		return ctx, fmt.Errorf("executing build step: %w", err)
	}

	ctx, err = p.implementation.ExecuteTestStep(&p.Options, ps, ctx)
	if err != nil {
		return ctx, fmt.Errorf("executing test step: %w", err)
	}

	ctx, err = p.implementation.ExecuteConditionalStep(&p.Options, ps, ctx)
	if err != nil {
		return ctx, fmt.Errorf("executing conditional step: %w", err)
	}
	return ctx, nil
}
