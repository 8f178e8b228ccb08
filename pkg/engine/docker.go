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
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/sirupsen/logrus"
	"sigs.k8s.io/release-utils/command"

	"github.com/kineticfire-labs/docker-pipeline/pkg/spec"
)

// cliRunner executes an external command and returns its combined
// output. It exists so tests can intercept CLI invocations.
type cliRunner interface {
	run(workDir, cmd string, args ...string) (string, error)

	// runInput feeds input to the command's stdin, keeping secrets
	// off the command line.
	runInput(workDir, input, cmd string, args ...string) (string, error)
}

type commandRunner struct{}

func (commandRunner) run(workDir, cmd string, args ...string) (string, error) {
	var c *command.Command
	if workDir == "" {
		c = command.New(cmd, args...)
	} else {
		c = command.NewWithWorkDir(workDir, cmd, args...)
	}
	output, err := c.RunSilentSuccessOutput()
	if err != nil {
		return "", fmt.Errorf("running %s: %w", cmd, err)
	}
	return output.OutputTrimNL(), nil
}

func (commandRunner) runInput(workDir, input, cmd string, args ...string) (string, error) {
	c := exec.Command(cmd, args...)
	c.Dir = workDir
	c.Stdin = strings.NewReader(input)
	output, err := c.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("running %s: %w", cmd, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Docker drives the docker CLI.
type Docker struct {
	Options Options
	runner  cliRunner
}

type Options struct {
	// Exec is the docker binary name or path.
	Exec string

	// WorkDir is the directory CLI commands run from.
	WorkDir string

	Logger *logrus.Logger
}

// NewDocker returns a docker CLI backed engine.
func NewDocker() *Docker {
	return &Docker{
		Options: Options{
			Exec:   "docker",
			Logger: logrus.New(),
		},
		runner: commandRunner{},
	}
}

var _ Engine = (*Docker)(nil)

// Build runs docker build, tagging the image with every configured
// reference, and returns the primary one.
func (d *Docker) Build(image *spec.Image) (string, error) {
	if err := image.Validate(); err != nil {
		return "", fmt.Errorf("validating image spec: %w", err)
	}
	refs, err := image.References()
	if err != nil {
		return "", err
	}

	args := []string{"build"}
	if image.Dockerfile != "" {
		args = append(args, "-f", image.Dockerfile)
	}
	for _, ref := range refs {
		args = append(args, "-t", ref)
	}
	buildArgs := make([]string, 0, len(image.BuildArgs))
	for k, v := range image.BuildArgs {
		buildArgs = append(buildArgs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(buildArgs)
	for _, ba := range buildArgs {
		args = append(args, "--build-arg", ba)
	}
	args = append(args, image.Context)

	d.Options.Logger.Infof("Building image %s", refs[0])
	if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, args...); err != nil {
		return "", fmt.Errorf("building image %s: %w", refs[0], err)
	}
	return refs[0], nil
}

// Tag applies each new reference to the image behind ref.
func (d *Docker) Tag(ref string, newRefs []string) error {
	if ref == "" {
		return errors.New("no source reference to tag")
	}
	for _, newRef := range newRefs {
		d.Options.Logger.Infof("Tagging %s as %s", ref, newRef)
		if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, "tag", ref, newRef); err != nil {
			return fmt.Errorf("tagging %s as %s: %w", ref, newRef, err)
		}
	}
	return nil
}

// Save writes the image to path, compressing the tar according to
// the requested kind. Compression shells out to the matching tool.
func (d *Docker) Save(ref, path string, compression spec.Compression) error {
	if ref == "" {
		return errors.New("no source reference to save")
	}
	if path == "" {
		return errors.New("save has no output path")
	}
	// Subprocesses resolve relative paths against WorkDir while the
	// os calls below resolve against the process cwd, so anchor the
	// path once before either sees it.
	if !filepath.IsAbs(path) && d.Options.WorkDir != "" {
		path = filepath.Join(d.Options.WorkDir, path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating save output directory: %w", err)
		}
	}

	tarPath := path
	if compression != spec.CompressionNone {
		tarPath = path + ".saving.tar"
	}
	d.Options.Logger.Infof("Saving %s to %s (%s)", ref, path, compression)
	if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, "save", ref, "-o", tarPath); err != nil {
		return fmt.Errorf("saving image %s: %w", ref, err)
	}
	if compression == spec.CompressionNone {
		return nil
	}
	if err := d.compress(tarPath, path, compression); err != nil {
		return fmt.Errorf("compressing archive %s: %w", path, err)
	}
	return nil
}

func (d *Docker) compress(tarPath, outPath string, compression spec.Compression) error {
	switch compression {
	case spec.CompressionGzip, spec.CompressionBzip2, spec.CompressionXz:
		tool := map[spec.Compression]string{
			spec.CompressionGzip:  "gzip",
			spec.CompressionBzip2: "bzip2",
			spec.CompressionXz:    "xz",
		}[compression]
		if _, err := d.runner.run(d.Options.WorkDir, tool, "-f", tarPath); err != nil {
			return err
		}
		return os.Rename(tarPath+compressedSuffix(compression), outPath)
	case spec.CompressionZip:
		if _, err := d.runner.run(d.Options.WorkDir, "zip", "-j", "-q", outPath, tarPath); err != nil {
			return err
		}
		return os.Remove(tarPath)
	default:
		return fmt.Errorf("unknown compression kind %q", compression)
	}
}

func compressedSuffix(compression spec.Compression) string {
	switch compression {
	case spec.CompressionGzip:
		return ".gz"
	case spec.CompressionBzip2:
		return ".bz2"
	case spec.CompressionXz:
		return ".xz"
	}
	return ""
}

// Publish retags ref as targetRef and pushes it, logging in first
// when credentials are configured.
func (d *Docker) Publish(ref, targetRef string, auth *spec.Auth) error {
	if ref == "" {
		return errors.New("no source reference to publish")
	}
	target, err := name.ParseReference(targetRef)
	if err != nil {
		return fmt.Errorf("parsing target reference %s: %w", targetRef, err)
	}
	if auth != nil {
		// The password goes through stdin so it never shows up in
		// the host process list
		registry := target.Context().RegistryStr()
		if _, err := d.runner.runInput(
			d.Options.WorkDir, auth.Password, d.Options.Exec,
			"login", "-u", auth.Username, "--password-stdin", registry,
		); err != nil {
			return fmt.Errorf("logging in to %s: %w", registry, err)
		}
	}
	if ref != targetRef {
		if err := d.Tag(ref, []string{targetRef}); err != nil {
			return err
		}
	}
	d.Options.Logger.Infof("Publishing %s", targetRef)
	if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, "push", targetRef); err != nil {
		return fmt.Errorf("pushing %s: %w", targetRef, err)
	}
	return nil
}

// VerifyPublish lists the target repository's tags through the
// registry API and checks the pushed tag is among them.
func (d *Docker) VerifyPublish(targetRef string, auth *spec.Auth) error {
	target, err := name.NewTag(targetRef)
	if err != nil {
		return fmt.Errorf("parsing target reference %s: %w", targetRef, err)
	}
	opts := []crane.Option{crane.WithAuthFromKeychain(authn.DefaultKeychain)}
	if auth != nil {
		opts = []crane.Option{crane.WithAuth(&authn.Basic{
			Username: auth.Username,
			Password: auth.Password,
		})}
	}
	tags, err := crane.ListTags(target.Repository.Name(), opts...)
	if err != nil {
		return fmt.Errorf("listing tags of %s: %w", target.Repository.Name(), err)
	}
	if !slices.Contains(tags, target.TagStr()) {
		return fmt.Errorf("tag %s not found in %s after push", target.TagStr(), target.Repository.Name())
	}
	return nil
}

// RemoveImage force deletes a local image reference.
func (d *Docker) RemoveImage(ref string) error {
	d.Options.Logger.Infof("Removing image %s", ref)
	if _, err := d.runner.run(d.Options.WorkDir, d.Options.Exec, "rmi", "-f", ref); err != nil {
		return fmt.Errorf("removing image %s: %w", ref, err)
	}
	return nil
}
