//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the courses service using Mage.
//
// Usage:
//
//	mage build           Compile the courses binary to bin/
//	mage run             Build and serve on :8000 with the demo catalog
//	mage test:all        Run every test, including the container contract
//	mage test:unit       Run tests in -short mode (no container runtime)
//	mage test:container  Run only the image contract test
//	mage lint            Run golangci-lint
//	mage dockerfile      Regenerate ./Dockerfile from the Go recipe
//	mage image           Build the container image with podman or docker
//	mage clean           Remove build artifacts
//	mage install         Install courses to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "courses"
	binaryDir  = "bin"
	cmdDir     = "./cmd/courses"
	versionVar = "github.com/mesh-intelligence/courses/internal/cli.Version"
)

// ldflags stamps the binary with COURSES_VERSION when it is set.
func ldflags() string {
	if v := os.Getenv("COURSES_VERSION"); v != "" {
		return "-X " + versionVar + "=" + v
	}
	return ""
}

// Build compiles the courses binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Run builds the binary and serves on 127.0.0.1:8000 until interrupted.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve", "--host", "127.0.0.1")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
