package imagerecipe

import "strconv"

// ServicePort is the TCP port the service listens on inside the container.
const ServicePort = 8000

// PythonService is the recipe for the Python build of the service: a slim
// CPython 3.11 image running uvicorn against main:app.
func PythonService() *Recipe {
	port := strconv.Itoa(ServicePort)
	return &Recipe{Stages: []Stage{{
		BaseImage: "python:3.11-slim",
		Env: []EnvVar{
			{Name: "PYTHONUNBUFFERED", Value: "1"},
			{Name: "PYTHONDONTWRITEBYTECODE", Value: "1"},
		},
		WorkDir:  "/app",
		Manifest: CopyStep{Sources: []string{"requirements.txt"}, Dest: "."},
		Install: []string{
			"pip install --upgrade pip",
			"pip install --no-cache-dir -r requirements.txt",
		},
		Source: CopyStep{Sources: []string{"."}, Dest: "."},
		Expose: []int{ServicePort},
		Cmd:    []string{"uvicorn", "main:app", "--host", "0.0.0.0", "--port", port},
	}}}
}

// GoOptions tunes GoService. Zero fields take the defaults below.
type GoOptions struct {
	GoVersion    string // golang image tag, default "1.25"
	RuntimeImage string // default "gcr.io/distroless/static-debian12"
	Binary       string // default "courses"
	Package      string // default "./cmd/courses"
}

func (o GoOptions) withDefaults() GoOptions {
	if o.GoVersion == "" {
		o.GoVersion = "1.25"
	}
	if o.RuntimeImage == "" {
		o.RuntimeImage = "gcr.io/distroless/static-debian12"
	}
	if o.Binary == "" {
		o.Binary = "courses"
	}
	if o.Package == "" {
		o.Package = "./cmd/courses"
	}
	return o
}

// GoService is the two-stage recipe for this module: a builder stage that
// downloads modules from go.mod and go.sum before copying the source, and a
// minimal runtime stage holding only the binary.
func GoService(opts GoOptions) *Recipe {
	o := opts.withDefaults()
	out := "/out/" + o.Binary
	return &Recipe{Stages: []Stage{
		{
			Name:      "build",
			BaseImage: "golang:" + o.GoVersion,
			Env:       []EnvVar{{Name: "CGO_ENABLED", Value: "0"}},
			WorkDir:   "/src",
			Manifest:  CopyStep{Sources: []string{"go.mod", "go.sum"}, Dest: "./"},
			Install:   []string{"go mod download"},
			Source:    CopyStep{Sources: []string{"."}, Dest: "."},
			Build:     []string{`go build -trimpath -ldflags="-s -w" -o ` + out + " " + o.Package},
		},
		{
			BaseImage: o.RuntimeImage,
			Env: []EnvVar{
				{Name: "COURSES_CONFIG_DIR", Value: "/app/config"},
				{Name: "COURSES_DATA_DIR", Value: "/app/data"},
			},
			WorkDir:  "/app",
			CopyFrom: []CopyFrom{{Stage: "build", Source: out, Dest: "/usr/local/bin/" + o.Binary}},
			Expose:   []int{ServicePort},
			Cmd:      []string{o.Binary, "serve", "--host", "0.0.0.0", "--port", strconv.Itoa(ServicePort)},
		},
	}}
}

// Preset names accepted by Preset.
const (
	PresetGo     = "go"
	PresetPython = "python"
)

// Preset returns a named recipe with default options.
func Preset(name string) (*Recipe, bool) {
	switch name {
	case PresetGo:
		return GoService(GoOptions{}), true
	case PresetPython:
		return PythonService(), true
	default:
		return nil, false
	}
}
