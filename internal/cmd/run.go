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

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kineticfire-labs/docker-pipeline/pkg/engine"
	"github.com/kineticfire-labs/docker-pipeline/pkg/pipeline"
	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
	"github.com/kineticfire-labs/docker-pipeline/pkg/store"
	"github.com/kineticfire-labs/docker-pipeline/pkg/testrun"
)

type runOptions struct {
	Verbose     bool
	CWD         string
	HistoryPath string
	KeepFailed  bool
}

func addRun(parentCmd *cobra.Command) {
	runOpts := runOptions{}
	runCmd := &cobra.Command{
		Short: "Execute a pipeline",
		Long: `docker-pipeline run pipeline.yaml

The run subcommand executes one pipeline: it builds the configured
image, starts the compose stack, waits for it to be ready, runs
the test command, then executes the success or failure branch the
test outcome selects. The cleanup step runs no matter how the
pipeline ended, so test containers are not leaked even when the
build or the stack start fails.

	`,
		Use:               "run",
		SilenceUsage:      false,
		PersistentPreRunE: initLogging,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("pipeline spec file not specified")
			}

			ps, err := spec.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading pipeline spec: %w", err)
			}

			if runOpts.KeepFailed {
				if ps.Always == nil {
					ps.Always = &spec.AlwaysStep{}
				}
				ps.Always.KeepFailedContainers = true
			}

			p := buildPipeline(runOpts)

			start := time.Now()
			ctx, runErr := p.Run(ps)
			end := time.Now()

			if runOpts.HistoryPath != "" {
				if err := recordRun(runOpts.HistoryPath, ctx, runErr, start, end); err != nil {
					logrus.Errorf("Recording run history: %v", err)
				}
			}

			if runErr != nil {
				return fmt.Errorf("running pipeline %s: %w", ps.Name, runErr)
			}

			if passed, ran := ctx.TestsPassed(); ran && !passed {
				logrus.Errorf("Pipeline %s: tests failed: %s", ps.Name, ctx.Test)
				return fmt.Errorf("pipeline %s tests failed", ps.Name)
			}
			return nil
		},
	}

	runCmd.PersistentFlags().StringVarP(
		&runOpts.CWD,
		"cwd",
		"C",
		"",
		"directory to change to before running the pipeline",
	)

	runCmd.PersistentFlags().BoolVar(
		&runOpts.Verbose,
		"verbose",
		false,
		"verbose output (prints commands and output)",
	)

	runCmd.PersistentFlags().StringVar(
		&runOpts.HistoryPath,
		"history",
		"",
		"path of a sqlite database to record the run in",
	)

	runCmd.PersistentFlags().BoolVar(
		&runOpts.KeepFailed,
		"keep-failed",
		false,
		"keep test containers around when tests fail",
	)

	parentCmd.AddCommand(runCmd)
}

// buildPipeline returns a pipeline wired to the docker CLI engine.
func buildPipeline(opts runOptions) *pipeline.Pipeline {
	eng := engine.NewDocker()
	eng.Options.WorkDir = opts.CWD
	eng.Options.Logger = logrus.StandardLogger()

	tests := testrun.NewRunner()
	tests.Options.Verbose = opts.Verbose
	tests.Options.Logger = logrus.StandardLogger()

	p := pipeline.New(eng)
	p.Options.Tests = tests
	p.Options.Logger = logrus.StandardLogger()
	return p
}

func recordRun(
	historyPath string, ctx pipeline.Context, runErr error,
	start, end time.Time,
) error {
	history, err := store.Open(historyPath)
	if err != nil {
		return err
	}
	defer history.Close()

	run := &store.Run{
		Pipeline:       ctx.PipelineName,
		ImageReference: ctx.ImageReference,
		StartTime:      start,
		EndTime:        end,
	}
	if passed, ran := ctx.TestsPassed(); ran {
		run.TestsPassed = &passed
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	return history.RecordRun(run)
}
