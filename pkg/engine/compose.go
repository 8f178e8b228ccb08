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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

const waitPollInterval = 2 * time.Second

// ComposeUp starts the stack detached under a unique project name
// so concurrent pipeline runs never share containers.
func (d *Docker) ComposeUp(stack *spec.Stack) (*Stack, error) {
	if stack == nil {
		return nil, errors.New("stack spec cannot be null")
	}
	if len(stack.ComposeFiles) == 0 {
		return nil, errors.New("stack has no compose files")
	}

	base := stack.ProjectName
	if base == "" {
		base = "stack"
	}
	handle := &Stack{
		Project:      fmt.Sprintf("%s-%.8s", base, uuid.NewString()),
		ComposeFiles: stack.ComposeFiles,
	}

	d.Options.Logger.Infof("Starting compose stack %s", handle.Project)
	args := append(d.composeArgs(handle), "up", "-d")
	if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, args...); err != nil {
		return nil, fmt.Errorf("starting compose stack %s: %w", handle.Project, err)
	}
	return handle, nil
}

// ComposeDown stops the stack and removes its containers, networks
// and volumes.
func (d *Docker) ComposeDown(stack *Stack) error {
	if stack == nil {
		return errors.New("no stack handle to tear down")
	}
	d.Options.Logger.Infof("Tearing down compose stack %s", stack.Project)
	args := append(d.composeArgs(stack), "down", "--volumes", "--remove-orphans")
	if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, args...); err != nil {
		return fmt.Errorf("tearing down compose stack %s: %w", stack.Project, err)
	}
	return nil
}

// WaitForStack blocks until every awaited service reaches the wait
// condition. Services are polled concurrently; the configured
// timeout bounds the whole wait and expiring it is an error.
func (d *Docker) WaitForStack(stack *Stack, wait *spec.Wait) error {
	if stack == nil {
		return errors.New("no stack handle to wait on")
	}
	if wait == nil {
		return nil
	}

	condition := wait.Condition
	if condition == "" {
		condition = spec.WaitRunning
	}

	services := wait.Services
	if len(services) == 0 {
		listed, err := d.listServices(stack)
		if err != nil {
			return err
		}
		services = listed
	}
	if len(services) == 0 {
		return nil
	}

	d.Options.Logger.Infof(
		"Waiting up to %s for services to be %s: %s",
		wait.Timeout(), condition, strings.Join(services, ", "),
	)

	ctx, cancel := context.WithTimeout(context.Background(), wait.Timeout())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, service := range services {
		g.Go(func() error {
			for {
				ok, err := d.serviceReady(stack, service, condition)
				if err != nil {
					return err
				}
				if ok {
					return nil
				}
				select {
				case <-ctx.Done():
					return fmt.Errorf(
						"timed out waiting for service %s to be %s", service, condition,
					)
				case <-time.After(waitPollInterval):
				}
			}
		})
	}
	return g.Wait()
}

func (d *Docker) composeArgs(stack *Stack) []string {
	args := []string{"compose"}
	for _, f := range stack.ComposeFiles {
		args = append(args, "-f", f)
	}
	return append(args, "-p", stack.Project)
}

// composeService mirrors one entry of compose ps --format json.
type composeService struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

func (d *Docker) listServices(stack *Stack) ([]string, error) {
	args := append(d.composeArgs(stack), "ps", "--services")
	output, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stack services: %w", err)
	}
	services := []string{}
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			services = append(services, line)
		}
	}
	return services, nil
}

func (d *Docker) serviceReady(stack *Stack, service string, condition spec.WaitCondition) (bool, error) {
	args := append(d.composeArgs(stack), "ps", "--format", "json", service)
	output, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, args...)
	if err != nil {
		return false, fmt.Errorf("querying state of service %s: %w", service, err)
	}

	// compose emits one JSON document per line
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		entry := composeService{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return false, fmt.Errorf("parsing compose ps output: %w", err)
		}
		if entry.Service != service && entry.Name != service {
			continue
		}
		switch condition {
		case spec.WaitHealthy:
			return entry.Health == "healthy", nil
		default:
			return entry.State == "running", nil
		}
	}
	return false, nil
}
