//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, container).
type Test mg.Namespace

// All runs every test. The container contract test needs podman or docker.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the tests in -short mode, which skips the container contract.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Container builds the image from ./Dockerfile and checks that it serves on
// port 8000.
func (Test) Container() error {
	mg.Deps(Dockerfile)
	return sh.RunV(binGo, "test", "-v", "-run", "TestImageContract", "./internal/imagerecipe/")
}
