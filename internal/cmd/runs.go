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

	"github.com/spf13/cobra"

	"github.com/kineticfire-labs/docker-pipeline/pkg/store"
)

type runsOptions struct {
	HistoryPath string
	Limit       int
}

func addRuns(parentCmd *cobra.Command) {
	runsOpts := runsOptions{}
	runsCmd := &cobra.Command{
		Short: "List recorded pipeline runs",
		Long: `docker-pipeline runs --history runs.db

The runs subcommand lists pipeline executions previously recorded
with run --history, newest first.

	`,
		Use:               "runs",
		SilenceUsage:      false,
		PersistentPreRunE: initLogging,
		RunE: func(_ *cobra.Command, _ []string) error {
			if runsOpts.HistoryPath == "" {
				return errors.New("run history path not specified")
			}

			history, err := store.Open(runsOpts.HistoryPath)
			if err != nil {
				return fmt.Errorf("opening run history: %w", err)
			}
			defer history.Close()

			runs, err := history.ListRuns(runsOpts.Limit)
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			for _, r := range runs {
				outcome := "no tests"
				if r.TestsPassed != nil {
					outcome = "tests failed"
					if *r.TestsPassed {
						outcome = "tests passed"
					}
				}
				if r.Error != "" {
					outcome = "error: " + r.Error
				}
				fmt.Printf(
					"%s  %-24s %-40s %s\n",
					r.StartTime.Format("2006-01-02 15:04:05"),
					r.Pipeline, r.ImageReference, outcome,
				)
			}
			return nil
		},
	}

	runsCmd.PersistentFlags().StringVar(
		&runsOpts.HistoryPath,
		"history",
		"",
		"path of the sqlite database runs were recorded in",
	)

	runsCmd.PersistentFlags().IntVar(
		&runsOpts.Limit,
		"limit",
		50,
		"maximum number of runs to list",
	)

	parentCmd.AddCommand(runsCmd)
}
