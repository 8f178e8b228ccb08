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

package spec

import (
	"errors"
	"fmt"

	"github.com/google/go-containerregistry/pkg/name"
)

// Image describes an image to build: where its sources live and
// the references it will be known by.
type Image struct {
	// Registry is the registry host the image belongs to (eg ghcr.io).
	// Optional, omitted from references when unset.
	Registry string `json:"registry,omitempty"`

	// Namespace is the org or user segment of the reference.
	// Optional, omitted from references when unset.
	Namespace string `json:"namespace,omitempty"`

	// Name is the image name. Required.
	Name string `json:"name"`

	// Dockerfile is the path to the dockerfile, relative to Context
	// when not absolute. Defaults to Dockerfile in the context dir.
	Dockerfile string `json:"dockerfile,omitempty"`

	// Context is the build context directory. Defaults to ".".
	Context string `json:"context,omitempty"`

	// BuildArgs are passed through to the engine build.
	BuildArgs map[string]string `json:"buildArgs,omitempty"`

	// Tags to apply at build time. At least one is required,
	// the first is the primary tag.
	Tags []string `json:"tags,omitempty"`
}

// Validate checks the image spec before any engine call is made.
func (i *Image) Validate() error {
	if i == nil {
		return errors.New("image spec cannot be null")
	}
	errs := []error{}
	if i.Name == "" {
		errs = append(errs, errors.New("image name cannot be empty"))
	}
	if len(i.Tags) == 0 {
		errs = append(errs, errors.New("no tags configured"))
	}
	for _, t := range i.Tags {
		if t == "" {
			errs = append(errs, errors.New("image tags cannot be empty"))
			break
		}
	}
	return errors.Join(errs...)
}

// SourceImageReference builds the fully qualified reference of the
// image using its primary (first) tag. Registry and namespace
// segments are omitted when unset.
func (i *Image) SourceImageReference() (string, error) {
	if i == nil {
		return "", errors.New("image spec cannot be null")
	}
	if i.Name == "" {
		return "", errors.New("image name cannot be empty")
	}
	if len(i.Tags) == 0 {
		return "", errors.New("no tags configured")
	}
	return i.referenceForTag(i.Tags[0])
}

// References returns one fully qualified reference per configured tag.
func (i *Image) References() ([]string, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(i.Tags))
	for _, tag := range i.Tags {
		ref, err := i.referenceForTag(tag)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ReferencesForTags builds fully qualified references for the given
// tags on this image's coordinates. Used when a conditional step
// applies additional tags after a build.
func (i *Image) ReferencesForTags(tags []string) ([]string, error) {
	if i == nil {
		return nil, errors.New("image spec cannot be null")
	}
	if len(tags) == 0 {
		return nil, errors.New("no tags configured")
	}
	refs := make([]string, 0, len(tags))
	for _, tag := range tags {
		ref, err := i.referenceForTag(tag)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (i *Image) referenceForTag(tag string) (string, error) {
	ref := joinReference(i.Registry, i.Namespace, i.Name, tag)
	if _, err := name.ParseReference(ref); err != nil {
		return "", fmt.Errorf("parsing image reference %s: %w", ref, err)
	}
	return ref, nil
}

// joinReference assembles [registry/][namespace/]name:tag, skipping
// unset segments so no double slashes or stray separators appear.
func joinReference(registry, namespace, imageName, tag string) string {
	ref := ""
	if registry != "" {
		ref += registry + "/"
	}
	if namespace != "" {
		ref += namespace + "/"
	}
	return ref + imageName + ":" + tag
}
