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

// Package engine abstracts the container engine the pipeline drives.
// The orchestrator only sees the Engine interface; the default
// implementation shells out to the docker CLI.
package engine

import (
	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

// Engine is the set of container operations a pipeline run needs.
// Every call is blocking; the orchestrator sequences them.
type Engine interface {
	// Build builds the image and returns its primary reference.
	Build(image *spec.Image) (string, error)

	// Tag applies additional references to an existing image.
	Tag(ref string, newRefs []string) error

	// Save archives an image to path using the given compression.
	Save(ref, path string, compression spec.Compression) error

	// Publish pushes ref to targetRef, authenticating when auth
	// is non-nil.
	Publish(ref, targetRef string, auth *spec.Auth) error

	// VerifyPublish checks that targetRef is visible in the
	// registry after a push.
	VerifyPublish(targetRef string, auth *spec.Auth) error

	// ComposeUp starts the stack and returns a handle for
	// later teardown.
	ComposeUp(stack *spec.Stack) (*Stack, error)

	// WaitForStack blocks until the stack satisfies the wait
	// condition or its timeout expires.
	WaitForStack(stack *Stack, wait *spec.Wait) error

	// ComposeDown tears a started stack down.
	ComposeDown(stack *Stack) error

	// RemoveImage deletes a local image reference.
	RemoveImage(ref string) error
}

// Stack is the opaque handle of a started compose stack. The
// project name isolates it from concurrent stacks on the same host.
type Stack struct {
	Project      string
	ComposeFiles []string
}
