// Package imagerecipe models the container image build recipe of the
// courses service and renders it as a Dockerfile.
//
// A recipe is a list of stages. Within a stage the instructions always come
// in the same order: the dependency manifest is copied alone, dependencies
// are installed, and only then is the rest of the source copied. Changing
// application code therefore never invalidates the dependency layer.
package imagerecipe

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
)

// ErrInvalidRecipe is wrapped by every validation error.
var ErrInvalidRecipe = errors.New("invalid image recipe")

// EnvVar is one ENV entry.
type EnvVar struct {
	Name  string
	Value string
}

// CopyStep copies Sources from the build context into Dest. A step without
// sources is skipped.
type CopyStep struct {
	Sources []string
	Dest    string
}

// CopyFrom copies Source out of an earlier stage.
type CopyFrom struct {
	Stage  string
	Source string
	Dest   string
}

// Stage is one FROM block.
type Stage struct {
	Name      string
	BaseImage string
	Env       []EnvVar
	WorkDir   string
	// Manifest is the dependency manifest, copied before anything else so
	// the Install layer is cached until the manifest changes.
	Manifest CopyStep
	Install  []string
	Source   CopyStep
	Build    []string
	CopyFrom []CopyFrom
	Expose   []int
	// Cmd is the exec-form start command.
	Cmd []string
}

// Recipe is an ordered list of stages. The last stage is the image that runs.
type Recipe struct {
	Stages []Stage
}

// Final returns the runtime stage.
func (r *Recipe) Final() (*Stage, error) {
	if len(r.Stages) == 0 {
		return nil, fmt.Errorf("%w: no stages", ErrInvalidRecipe)
	}
	return &r.Stages[len(r.Stages)-1], nil
}

// Validate checks the structural rules of the recipe.
func (r *Recipe) Validate() error {
	final, err := r.Final()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Stages))
	for i, s := range r.Stages {
		label := s.Name
		if label == "" {
			label = strconv.Itoa(i)
		}
		if s.BaseImage == "" {
			return fmt.Errorf("%w: stage %s has no base image", ErrInvalidRecipe, label)
		}
		if len(s.Install) > 0 && len(s.Manifest.Sources) == 0 {
			return fmt.Errorf("%w: stage %s installs dependencies without copying a manifest first", ErrInvalidRecipe, label)
		}
		if len(s.Manifest.Sources) > 0 && s.Manifest.Dest == "" {
			return fmt.Errorf("%w: stage %s manifest copy has no destination", ErrInvalidRecipe, label)
		}
		if len(s.Source.Sources) > 0 && s.Source.Dest == "" {
			return fmt.Errorf("%w: stage %s source copy has no destination", ErrInvalidRecipe, label)
		}
		if slices.Contains(s.Manifest.Sources, ".") {
			return fmt.Errorf("%w: stage %s copies the whole context as its manifest", ErrInvalidRecipe, label)
		}
		for _, e := range s.Env {
			if e.Name == "" {
				return fmt.Errorf("%w: stage %s has an unnamed ENV entry", ErrInvalidRecipe, label)
			}
		}
		for _, p := range s.Expose {
			if p < 1 || p > 65535 {
				return fmt.Errorf("%w: stage %s exposes port %d", ErrInvalidRecipe, label, p)
			}
		}
		for _, c := range s.CopyFrom {
			if !seen[c.Stage] {
				return fmt.Errorf("%w: stage %s copies from unknown stage %q", ErrInvalidRecipe, label, c.Stage)
			}
		}
		if s.Name != "" {
			seen[s.Name] = true
		}
	}

	if len(final.Cmd) == 0 {
		return fmt.Errorf("%w: final stage has no command", ErrInvalidRecipe)
	}
	return nil
}

// Env returns the environment the running container starts with.
func (r *Recipe) Env() map[string]string {
	env := make(map[string]string)
	final, err := r.Final()
	if err != nil {
		return env
	}
	for _, e := range final.Env {
		env[e.Name] = e.Value
	}
	return env
}

// DependencyInputs lists the files whose content decides whether the
// dependency layer of the stage is rebuilt.
func (s *Stage) DependencyInputs() []string {
	return slices.Clone(s.Manifest.Sources)
}

// ListenAddr returns the host:port the start command binds, read from its
// --host and --port flags.
func (r *Recipe) ListenAddr() (string, error) {
	final, err := r.Final()
	if err != nil {
		return "", err
	}

	var host, port string
	for i := 0; i < len(final.Cmd); i++ {
		switch final.Cmd[i] {
		case "--host":
			if i+1 < len(final.Cmd) {
				host = final.Cmd[i+1]
				i++
			}
		case "--port":
			if i+1 < len(final.Cmd) {
				port = final.Cmd[i+1]
				i++
			}
		}
	}
	if host == "" || port == "" {
		return "", fmt.Errorf("%w: command %v does not name --host and --port", ErrInvalidRecipe, final.Cmd)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("%w: bad port %q in command", ErrInvalidRecipe, port)
	}
	return net.JoinHostPort(host, port), nil
}
