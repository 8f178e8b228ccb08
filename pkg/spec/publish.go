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
)

// Publish describes where a built image gets pushed after the
// conditional step selects it.
type Publish struct {
	// Tags published to every target that does not declare its own.
	Tags []string `json:"tags,omitempty"`

	// Targets are the registries to push to.
	Targets []PublishTarget `json:"targets,omitempty"`
}

// PublishTarget is a single publish destination.
type PublishTarget struct {
	// Name identifies the target in logs and errors.
	Name string `json:"name,omitempty"`

	Registry  string `json:"registry,omitempty"`
	Namespace string `json:"namespace,omitempty"`

	// ImageName overrides the source image name. When unset the
	// target inherits the source image's name.
	ImageName string `json:"imageName,omitempty"`

	// Tags pushed to this target. When unset the publish level tags
	// apply, and failing those, the source image's own tags.
	Tags []string `json:"tags,omitempty"`

	Auth *Auth `json:"auth,omitempty"`
}

// Auth carries registry credentials. A nil Auth means anonymous.
type Auth struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Validate checks the publish block for configuration errors.
func (p *Publish) Validate() error {
	if p == nil {
		return nil
	}
	if len(p.Targets) == 0 {
		return errors.New("publish configured with no targets")
	}
	errs := []error{}
	for i, t := range p.Targets {
		if t.Registry == "" {
			errs = append(errs, fmt.Errorf("publish target #%d has no registry", i))
		}
	}
	return errors.Join(errs...)
}

// ResolveTags returns the effective tag list for a target. Target
// tags win outright, then the publish level tags, then the source
// image's own tags.
func (p *Publish) ResolveTags(target *PublishTarget, source *Image) ([]string, error) {
	if len(target.Tags) > 0 {
		return target.Tags, nil
	}
	if p != nil && len(p.Tags) > 0 {
		return p.Tags, nil
	}
	if source == nil || len(source.Tags) == 0 {
		return nil, errors.New("no tags configured")
	}
	return source.Tags, nil
}

// TargetReferences builds the fully qualified references the target
// receives for the requested tags. The image name falls back to the
// source image's name when the target does not set one.
func (t *PublishTarget) TargetReferences(source *Image, tags []string) ([]string, error) {
	imageName := t.ImageName
	if imageName == "" {
		if source == nil || source.Name == "" {
			return nil, errors.New("publish target has no image name and no source image to inherit from")
		}
		imageName = source.Name
	}
	if len(tags) == 0 {
		return nil, errors.New("no tags configured")
	}
	refs := make([]string, 0, len(tags))
	for _, tag := range tags {
		refs = append(refs, joinReference(t.Registry, t.Namespace, imageName, tag))
	}
	return refs, nil
}
