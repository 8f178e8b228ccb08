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
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Load reads a pipeline spec from a YAML file, applies defaults and
// validates it.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline spec %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a pipeline spec from YAML data, applies defaults
// and validates it.
func Parse(data []byte) (*Pipeline, error) {
	p := &Pipeline{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("unmarshaling pipeline spec: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating pipeline spec: %w", err)
	}
	return p, nil
}

func (p *Pipeline) applyDefaults() {
	if p.Image != nil && p.Image.Context == "" {
		p.Image.Context = "."
	}
	if p.Test != nil && p.Test.Stack != nil && p.Test.Stack.Wait != nil &&
		p.Test.Stack.Wait.Condition == "" {
		p.Test.Stack.Wait.Condition = WaitRunning
	}
	if p.Always == nil {
		p.Always = &AlwaysStep{}
	}
	if p.Always.RemoveTestContainers == nil {
		t := true
		p.Always.RemoveTestContainers = &t
	}
	for _, step := range []*ConditionalStep{
		p.OnTestSuccess, p.OnTestFailure, p.OnSuccess, p.OnFailure,
	} {
		if step != nil && step.Save != nil && step.Save.Compression == "" {
			step.Save.Compression = CompressionNone
		}
	}
}
