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

package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

func TestComposeUp(t *testing.T) {
	runner := &fakeRunner{}
	d := testDocker(runner)

	handle, err := d.ComposeUp(&spec.Stack{
		ComposeFiles: []string{"docker-compose.yaml", "docker-compose.test.yaml"},
		ProjectName:  "myapp",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(handle.Project, "myapp-"))
	require.Len(t, runner.calls, 1)
	require.Equal(t, []string{
		"docker", "compose",
		"-f", "docker-compose.yaml",
		"-f", "docker-compose.test.yaml",
		"-p", handle.Project,
		"up", "-d",
	}, runner.calls[0])

	// Two runs of the same stack get distinct project names
	second, err := d.ComposeUp(&spec.Stack{
		ComposeFiles: []string{"docker-compose.yaml"},
		ProjectName:  "myapp",
	})
	require.NoError(t, err)
	require.NotEqual(t, handle.Project, second.Project)
}

func TestComposeUpValidation(t *testing.T) {
	d := testDocker(&fakeRunner{})
	_, err := d.ComposeUp(nil)
	require.Error(t, err)
	_, err = d.ComposeUp(&spec.Stack{})
	require.Error(t, err)
}

func TestComposeDown(t *testing.T) {
	runner := &fakeRunner{}
	d := testDocker(runner)

	err := d.ComposeDown(&Stack{
		Project:      "myapp-1234",
		ComposeFiles: []string{"docker-compose.yaml"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"docker", "compose",
		"-f", "docker-compose.yaml",
		"-p", "myapp-1234",
		"down", "--volumes", "--remove-orphans",
	}, runner.calls[0])

	require.Error(t, d.ComposeDown(nil))
}

func TestWaitForStack(t *testing.T) {
	stack := &Stack{Project: "myapp-1234", ComposeFiles: []string{"docker-compose.yaml"}}

	// Services already running resolve immediately
	runner := &fakeRunner{
		output: `{"Name":"myapp-1234-app-1","Service":"app","State":"running","Health":""}`,
	}
	d := testDocker(runner)
	err := d.WaitForStack(stack, &spec.Wait{
		Services:       []string{"app"},
		Condition:      spec.WaitRunning,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)

	// A service that never turns healthy times the wait out
	runner = &fakeRunner{
		output: `{"Name":"myapp-1234-app-1","Service":"app","State":"running","Health":"starting"}`,
	}
	d = testDocker(runner)
	err = d.WaitForStack(stack, &spec.Wait{
		Services:       []string{"app"},
		Condition:      spec.WaitHealthy,
		TimeoutSeconds: 1,
	})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "timed out"))

	// A nil wait spec is a no-op
	require.NoError(t, d.WaitForStack(stack, nil))
	require.Error(t, d.WaitForStack(nil, &spec.Wait{}))
}
