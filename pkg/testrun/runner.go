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

// Package testrun executes the pipeline's test command and turns
// its outcome into a Result the orchestrator can branch on. A test
// that runs and fails is data, not an error; only failing to start
// the command at all is an error.
package testrun

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

// Runner executes test commands.
type Runner struct {
	Options        Options
	implementation runnerImplementation
}

type Options struct {
	Verbose bool
	Logger  *logrus.Logger
}

// NewRunner returns a runner with the default command-executing
// implementation.
func NewRunner() *Runner {
	return &Runner{
		Options: Options{
			Logger: logrus.New(),
		},
		implementation: &defaultRunnerImplementation{},
	}
}

// Run executes the configured test command and collects its result.
func (r *Runner) Run(test *spec.Test) (*Result, error) {
	if test == nil || len(test.Command) == 0 {
		return nil, fmt.Errorf("no test command configured")
	}

	passed, err := r.implementation.Execute(&r.Options, test)
	if err != nil {
		return nil, fmt.Errorf("executing test command: %w", err)
	}

	result, err := r.implementation.CollectResult(&r.Options, test, passed)
	if err != nil {
		return nil, fmt.Errorf("collecting test results: %w", err)
	}

	r.Options.Logger.Infof("Test run %s", result)
	return result, nil
}
