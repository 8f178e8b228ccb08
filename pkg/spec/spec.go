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

// Package spec defines the declarative description of a pipeline:
// the image to build, the compose stack and command that test it,
// and the follow-up work (tagging, saving, publishing, cleanup)
// that runs once the test outcome is known. The orchestrator in
// pkg/pipeline treats these types as read-only configuration.
package spec

import (
	"errors"
	"fmt"
	"time"
)

// Pipeline is the top level spec driving one
// build → test → conditional → always run.
type Pipeline struct {
	// Name identifies the pipeline in logs, errors and run history.
	Name string `json:"name"`

	// Image to build. Optional, pipelines can be test-only.
	Image *Image `json:"image,omitempty"`

	// Test step. Optional, pipelines can be build-only.
	Test *Test `json:"test,omitempty"`

	// OnTestSuccess runs when the test step reports all tests passed.
	OnTestSuccess *ConditionalStep `json:"onTestSuccess,omitempty"`

	// OnTestFailure runs when the test step reports failures.
	OnTestFailure *ConditionalStep `json:"onTestFailure,omitempty"`

	// OnSuccess and OnFailure are the generic fallbacks consulted
	// when the pipeline scoped blocks above are unset. A non-empty
	// specific block overrides the generic one entirely.
	OnSuccess *ConditionalStep `json:"onSuccess,omitempty"`
	OnFailure *ConditionalStep `json:"onFailure,omitempty"`

	// Always configures the unconditional cleanup step.
	Always *AlwaysStep `json:"always,omitempty"`
}

// Test configures the test step: an optional compose stack to stand
// up and the command whose exit status decides the test outcome.
type Test struct {
	// Stack to start before the tests run. Optional.
	Stack *Stack `json:"stack,omitempty"`

	// Command is the test invocation, argv style.
	Command []string `json:"command,omitempty"`

	// WorkDir is the directory the command runs in.
	WorkDir string `json:"workDir,omitempty"`

	// ReportsDir points at JUnit XML reports the command writes.
	// When set, test counts are read from the reports instead of
	// being derived from the exit status alone.
	ReportsDir string `json:"reportsDir,omitempty"`
}

// Configured reports whether the test step has anything to do.
func (t *Test) Configured() bool {
	return t != nil && (t.Stack != nil || len(t.Command) > 0)
}

// Stack describes a compose stack.
type Stack struct {
	// ComposeFiles are the compose file paths, in override order.
	ComposeFiles []string `json:"composeFiles,omitempty"`

	// ProjectName seeds the compose project name. A unique suffix
	// is appended at start time so concurrent runs do not collide.
	ProjectName string `json:"projectName,omitempty"`

	// Wait describes the readiness gate before tests execute.
	Wait *Wait `json:"wait,omitempty"`
}

// WaitCondition is the service state a readiness wait looks for.
type WaitCondition string

const (
	WaitRunning WaitCondition = "running"
	WaitHealthy WaitCondition = "healthy"
)

// Wait gates test execution on stack readiness.
type Wait struct {
	// Services to wait for. Empty means every service in the stack.
	Services []string `json:"services,omitempty"`

	// Condition each service must reach. Defaults to running.
	Condition WaitCondition `json:"condition,omitempty"`

	// TimeoutSeconds bounds the wait. Expiry is a fatal error.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

// Timeout returns the wait bound as a duration.
func (w *Wait) Timeout() time.Duration {
	if w == nil || w.TimeoutSeconds <= 0 {
		return defaultWaitTimeout
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

const defaultWaitTimeout = 60 * time.Second

// ConditionalStep is the bag of optional operations run after the
// test outcome selects the success or failure branch.
type ConditionalStep struct {
	// AdditionalTags are applied to the built image.
	AdditionalTags []string `json:"additionalTags,omitempty"`

	// Save archives the image to a file.
	Save *Save `json:"save,omitempty"`

	// Publish pushes the image to one or more registries.
	Publish *Publish `json:"publish,omitempty"`
}

// Empty reports whether the step has no operations configured,
// which makes the generic fallback block eligible.
func (c *ConditionalStep) Empty() bool {
	return c == nil || (len(c.AdditionalTags) == 0 && c.Save == nil && c.Publish == nil)
}

// Save describes an image archive output.
type Save struct {
	// Path of the archive to write. Required when save is set.
	Path string `json:"path"`

	// Compression applied to the archive. Defaults to none.
	Compression Compression `json:"compression,omitempty"`
}

// AlwaysStep configures the unconditional cleanup phase.
type AlwaysStep struct {
	// RemoveTestContainers tears the compose stack down.
	RemoveTestContainers *bool `json:"removeTestContainers,omitempty"`

	// KeepFailedContainers suppresses teardown, but only when the
	// tests actually failed.
	KeepFailedContainers bool `json:"keepFailedContainers,omitempty"`

	// CleanupImages removes the built image and any applied tags.
	CleanupImages bool `json:"cleanupImages,omitempty"`
}

// ShouldRemoveContainers applies the teardown gate: removal happens
// unless keepFailedContainers is set and the tests ran and failed.
func (a *AlwaysStep) ShouldRemoveContainers(testsRan, testsPassed bool) bool {
	remove := true
	if a != nil && a.RemoveTestContainers != nil {
		remove = *a.RemoveTestContainers
	}
	if a != nil && a.KeepFailedContainers && testsRan && !testsPassed {
		return false
	}
	return remove
}

// ShouldCleanupImages reports whether built images get removed.
func (a *AlwaysStep) ShouldCleanupImages() bool {
	return a != nil && a.CleanupImages
}

// Validate checks the whole pipeline spec eagerly, before the
// orchestrator makes any external call.
func (p *Pipeline) Validate() error {
	if p == nil {
		return errors.New("pipeline spec cannot be null")
	}
	errs := []error{}
	if p.Name == "" {
		errs = append(errs, errors.New("pipeline name cannot be empty"))
	}
	if p.Image != nil {
		if err := p.Image.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("image: %w", err))
		}
	}
	if p.Test != nil && p.Test.Stack != nil && len(p.Test.Stack.ComposeFiles) == 0 {
		errs = append(errs, errors.New("test stack has no compose files"))
	}
	if p.Test != nil && p.Test.Stack != nil && p.Test.Stack.Wait != nil {
		switch p.Test.Stack.Wait.Condition {
		case "", WaitRunning, WaitHealthy:
		default:
			errs = append(errs, fmt.Errorf("unknown wait condition %q", p.Test.Stack.Wait.Condition))
		}
	}
	for _, cs := range []struct {
		label string
		step  *ConditionalStep
	}{
		{"onTestSuccess", p.OnTestSuccess},
		{"onTestFailure", p.OnTestFailure},
		{"onSuccess", p.OnSuccess},
		{"onFailure", p.OnFailure},
	} {
		label, step := cs.label, cs.step
		if step == nil {
			continue
		}
		if step.Save != nil {
			if step.Save.Path == "" {
				errs = append(errs, fmt.Errorf("%s: save has no output path", label))
			}
			if _, err := ParseCompression(string(step.Save.Compression)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", label, err))
			}
		}
		if err := step.Publish.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}
