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
	"fmt"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

type pipelineImplementation interface {
	ExecuteBuildStep(*Options, *spec.Pipeline, Context) (Context, error)
	ExecuteTestStep(*Options, *spec.Pipeline, Context) (Context, error)
	ExecuteConditionalStep(*Options, *spec.Pipeline, Context) (Context, error)

	// ExecuteAlwaysStep performs cleanup. It never returns an
	// error: cleanup problems are logged and swallowed so they
	// cannot mask the pipeline's actual outcome.
	ExecuteAlwaysStep(opts *Options, ps *spec.Pipeline, ctx Context, testsRan, testsPassed bool) Context
}

type defaultPipelineImplementation struct{}

// ExecuteBuildStep builds the configured image. A pipeline without
// an image section is test-only and the step is a passthrough.
func (pi *defaultPipelineImplementation) ExecuteBuildStep(
	opts *Options, ps *spec.Pipeline, ctx Context,
) (Context, error) {
	if ps.Image == nil {
		opts.Logger.Debugf("Pipeline %s has no image to build", ps.Name)
		return ctx, nil
	}
	if err := ps.Image.Validate(); err != nil {
		return ctx, fmt.Errorf("validating image spec: %w", err)
	}
	ref, err := opts.Engine.Build(ps.Image)
	if err != nil {
		return ctx, fmt.Errorf("building image: %w", err)
	}
	return ctx.WithImageReference(ref), nil
}

// ExecuteTestStep starts the compose stack, waits for it to be
// ready, then runs the test command. Failing to start the stack is
// fatal; tests that ran and failed are recorded in the result and
// the pipeline continues to the failure branch.
func (pi *defaultPipelineImplementation) ExecuteTestStep(
	opts *Options, ps *spec.Pipeline, ctx Context,
) (Context, error) {
	if !ps.Test.Configured() {
		opts.Logger.Debugf("Pipeline %s has no test step", ps.Name)
		return ctx, nil
	}

	if ps.Test.Stack != nil {
		stack, err := opts.Engine.ComposeUp(ps.Test.Stack)
		if err != nil {
			return ctx, fmt.Errorf("starting test stack: %w", err)
		}
		ctx = ctx.WithStack(stack)

		// The stack must be confirmed ready before tests execute
		if err := opts.Engine.WaitForStack(stack, ps.Test.Stack.Wait); err != nil {
			return ctx, fmt.Errorf("waiting for test stack: %w", err)
		}
	}

	if len(ps.Test.Command) == 0 {
		return ctx, nil
	}
	result, err := opts.Tests.Run(ps.Test)
	if err != nil {
		return ctx, fmt.Errorf("running tests: %w", err)
	}
	return ctx.WithTestResult(result), nil
}

// ExecuteConditionalStep dispatches to the success or failure
// branch based on the recorded test outcome. Without a test result
// there is nothing to branch on and the step is a passthrough.
func (pi *defaultPipelineImplementation) ExecuteConditionalStep(
	opts *Options, ps *spec.Pipeline, ctx Context,
) (Context, error) {
	passed, ran := ctx.TestsPassed()
	if !ran {
		opts.Logger.Debugf("Pipeline %s has no test outcome to branch on", ps.Name)
		return ctx, nil
	}

	step := resolveConditionalStep(ps, passed)
	if step.Empty() {
		return ctx, nil
	}

	branch := "success"
	if !passed {
		branch = "failure"
	}
	opts.Logger.Infof("Executing %s branch of pipeline %s", branch, ps.Name)
	return pi.executeConditionalOperations(opts, ps, step, ctx)
}

// resolveConditionalStep picks the effective step for the branch:
// the pipeline scoped block when it has operations, else the
// generic fallback. A non-empty specific block overrides the
// generic one entirely, the two are never merged.
func resolveConditionalStep(ps *spec.Pipeline, testsPassed bool) *spec.ConditionalStep {
	specific, generic := ps.OnTestSuccess, ps.OnSuccess
	if !testsPassed {
		specific, generic = ps.OnTestFailure, ps.OnFailure
	}
	if !specific.Empty() {
		return specific
	}
	return generic
}

func (pi *defaultPipelineImplementation) executeConditionalOperations(
	opts *Options, ps *spec.Pipeline, step *spec.ConditionalStep, ctx Context,
) (Context, error) {
	// Every operation here works on the built image
	if ctx.ImageReference == "" {
		return ctx, errors.New("no built image")
	}

	if len(step.AdditionalTags) > 0 {
		refs, err := ps.Image.ReferencesForTags(step.AdditionalTags)
		if err != nil {
			return ctx, fmt.Errorf("resolving additional tags: %w", err)
		}
		if err := opts.Engine.Tag(ctx.ImageReference, refs); err != nil {
			return ctx, fmt.Errorf("applying additional tags: %w", err)
		}
		ctx = ctx.WithAppliedTags(refs...)
	}

	if step.Save != nil {
		if err := opts.Engine.Save(
			ctx.ImageReference, step.Save.Path, step.Save.Compression,
		); err != nil {
			return ctx, fmt.Errorf("saving image: %w", err)
		}
		ctx = ctx.WithSavedArchive(step.Save.Path)
	}

	if step.Publish != nil {
		var err error
		ctx, err = pi.executePublish(opts, ps, step.Publish, ctx)
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func (pi *defaultPipelineImplementation) executePublish(
	opts *Options, ps *spec.Pipeline, publish *spec.Publish, ctx Context,
) (Context, error) {
	if err := publish.Validate(); err != nil {
		return ctx, err
	}
	for i := range publish.Targets {
		target := &publish.Targets[i]

		tags, err := publish.ResolveTags(target, ps.Image)
		if err != nil {
			return ctx, fmt.Errorf("resolving publish tags: %w", err)
		}
		refs, err := target.TargetReferences(ps.Image, tags)
		if err != nil {
			return ctx, fmt.Errorf("resolving target references: %w", err)
		}

		for _, ref := range refs {
			if err := opts.Engine.Publish(ctx.ImageReference, ref, target.Auth); err != nil {
				return ctx, fmt.Errorf("publishing %s: %w", ref, err)
			}
			if err := opts.Engine.VerifyPublish(ref, target.Auth); err != nil {
				opts.Logger.Warnf("Could not verify %s after push: %v", ref, err)
			}
		}
		ctx = ctx.WithPublishedReferences(refs...)
	}
	return ctx, nil
}

// ExecuteAlwaysStep cleans up, unconditionally. Every failure in
// here is logged and swallowed so cleanup can never crash the run
// or mask its outcome.
func (pi *defaultPipelineImplementation) ExecuteAlwaysStep(
	opts *Options, ps *spec.Pipeline, ctx Context, testsRan, testsPassed bool,
) (out Context) {
	out = ctx
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Errorf("Cleanup of pipeline %s panicked: %v", ps.Name, r)
		}
	}()

	always := ps.Always

	if ctx.Stack != nil {
		if always.ShouldRemoveContainers(testsRan, testsPassed) {
			if err := opts.Engine.ComposeDown(ctx.Stack); err != nil {
				opts.Logger.Errorf("Removing test containers: %v", err)
			}
		} else {
			opts.Logger.Infof(
				"Keeping containers of stack %s for inspection", ctx.Stack.Project,
			)
		}
	}

	if always.ShouldCleanupImages() && ctx.ImageReference != "" {
		refs := append([]string{ctx.ImageReference}, ctx.AppliedTags...)
		for _, ref := range refs {
			if err := opts.Engine.RemoveImage(ref); err != nil {
				opts.Logger.Errorf("Removing image %s: %v", ref, err)
			}
		}
	}
	return out
}
