//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"

	"github.com/mesh-intelligence/courses/internal/imagerecipe"
)

// Container image constants.
const (
	dockerImageName = "courses"
	dockerImageTag  = "latest"
	dockerfilePath  = "Dockerfile"
)

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// imageRef returns the full image reference (name:tag).
func imageRef() string {
	return dockerImageName + ":" + dockerImageTag
}

// Dockerfile regenerates ./Dockerfile from the Go service recipe. The file
// is only rewritten when its content changes.
func Dockerfile() error {
	var buf bytes.Buffer
	if err := imagerecipe.GoService(imagerecipe.GoOptions{}).Render(&buf); err != nil {
		return fmt.Errorf("rendering Dockerfile: %w", err)
	}
	current, err := os.ReadFile(dockerfilePath)
	if err == nil && bytes.Equal(current, buf.Bytes()) {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Writing", dockerfilePath)
	return os.WriteFile(dockerfilePath, buf.Bytes(), 0o644)
}

// Image builds the container image from ./Dockerfile. The build context is
// the repo root.
func Image() error {
	mg.Deps(Dockerfile)
	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (tried podman, docker)")
	}

	fmt.Fprintln(os.Stderr, "Building container image", imageRef())
	cmd := exec.Command(rt, "build", "-t", imageRef(), "-f", dockerfilePath, ".")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// RemoveImage removes the container image. Errors are ignored because
// the image may not exist.
func RemoveImage() {
	rt := containerRuntime()
	if rt == "" {
		return
	}
	fmt.Fprintln(os.Stderr, "Removing container image...")
	_ = exec.Command(rt, "rmi", imageRef()).Run()
}
