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
	"slices"

	"github.com/kineticfire-labs/docker-pipeline/pkg/engine"
	"github.com/kineticfire-labs/docker-pipeline/pkg/testrun"
)

// Context records what a pipeline run has done so far. It is a
// value: every step receives a context and returns an extended
// copy. Steps only ever add to it, fields set by an earlier step
// are never dropped or overwritten.
type Context struct {
	// PipelineName is set at creation and never changes.
	PipelineName string

	// ImageReference is the fully qualified reference of the
	// built image, set by the build step.
	ImageReference string

	// Stack is the handle of the started compose stack, set by
	// the test step for the always step to tear down.
	Stack *engine.Stack

	// Test is the test outcome, set by the test step.
	Test *testrun.Result

	// AppliedTags are references added by a conditional step.
	AppliedTags []string

	// SavedArchives are archive paths written by a conditional step.
	SavedArchives []string

	// PublishedReferences are references pushed by a conditional step.
	PublishedReferences []string
}

// NewContext returns the empty context a pipeline run starts from.
func NewContext(pipelineName string) Context {
	return Context{PipelineName: pipelineName}
}

// WithImageReference records the built image.
func (c Context) WithImageReference(ref string) Context {
	c.ImageReference = ref
	return c
}

// WithStack records the started compose stack.
func (c Context) WithStack(stack *engine.Stack) Context {
	c.Stack = stack
	return c
}

// WithTestResult records the test outcome.
func (c Context) WithTestResult(result *testrun.Result) Context {
	c.Test = result
	return c
}

// WithAppliedTags appends references applied to the built image.
func (c Context) WithAppliedTags(refs ...string) Context {
	c.AppliedTags = append(slices.Clone(c.AppliedTags), refs...)
	return c
}

// WithSavedArchive appends a written archive path.
func (c Context) WithSavedArchive(path string) Context {
	c.SavedArchives = append(slices.Clone(c.SavedArchives), path)
	return c
}

// WithPublishedReferences appends pushed references.
func (c Context) WithPublishedReferences(refs ...string) Context {
	c.PublishedReferences = append(slices.Clone(c.PublishedReferences), refs...)
	return c
}

// TestsPassed reports the test outcome. ran is false when no test
// result was ever recorded, in which case passed carries no meaning.
func (c Context) TestsPassed() (passed, ran bool) {
	if c.Test == nil {
		return false, false
	}
	return c.Test.Passed, true
}
