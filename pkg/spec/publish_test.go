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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTags(t *testing.T) {
	source := &Image{Name: "myapp", Tags: []string{"1.0.0", "latest"}}
	for _, tc := range []struct {
		name      string
		publish   *Publish
		target    *PublishTarget
		expect    []string
		shouldErr bool
	}{
		{
			name:    "target tags win outright",
			publish: &Publish{Tags: []string{"spec-tag"}},
			target:  &PublishTarget{Tags: []string{"target-tag"}},
			expect:  []string{"target-tag"},
		},
		{
			name:    "publish level fallback",
			publish: &Publish{Tags: []string{"spec-tag"}},
			target:  &PublishTarget{},
			expect:  []string{"spec-tag"},
		},
		{
			name:    "source image fallback",
			publish: &Publish{},
			target:  &PublishTarget{},
			expect:  []string{"1.0.0", "latest"},
		},
		{
			name:      "nothing anywhere",
			publish:   &Publish{},
			target:    &PublishTarget{},
			shouldErr: true,
		},
	} {
		src := source
		if tc.shouldErr {
			src = &Image{Name: "myapp"}
		}
		tags, err := tc.publish.ResolveTags(tc.target, src)
		if tc.shouldErr {
			require.Error(t, err, tc.name)
			continue
		}
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.expect, tags, tc.name)
	}
}

func TestTargetReferences(t *testing.T) {
	source := &Image{Name: "sourceapp", Tags: []string{"1.0.0"}}

	target := &PublishTarget{
		Registry: "ghcr.io", Namespace: "myorg", ImageName: "myapp",
	}
	refs, err := target.TargetReferences(source, []string{"v1.0.0", "latest"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"ghcr.io/myorg/myapp:v1.0.0",
		"ghcr.io/myorg/myapp:latest",
	}, refs)

	// Image name is inherited from the source when the target
	// does not set one.
	inherited := &PublishTarget{Registry: "ghcr.io"}
	refs, err = inherited.TargetReferences(source, []string{"v1.0.0"})
	require.NoError(t, err)
	require.Equal(t, []string{"ghcr.io/sourceapp:v1.0.0"}, refs)

	_, err = inherited.TargetReferences(nil, []string{"v1.0.0"})
	require.Error(t, err)

	_, err = target.TargetReferences(source, nil)
	require.Error(t, err)
}

func TestPublishValidate(t *testing.T) {
	var nilPublish *Publish
	require.NoError(t, nilPublish.Validate())
	require.Error(t, (&Publish{}).Validate())
	require.Error(t, (&Publish{Targets: []PublishTarget{{}}}).Validate())
	require.NoError(t, (&Publish{Targets: []PublishTarget{{Registry: "ghcr.io"}}}).Validate())
}
