package imagerecipe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonDockerfile = `FROM python:3.11-slim

ENV PYTHONUNBUFFERED=1 \
    PYTHONDONTWRITEBYTECODE=1

WORKDIR /app

COPY requirements.txt .

RUN pip install --upgrade pip && \
    pip install --no-cache-dir -r requirements.txt

COPY . .

EXPOSE 8000

CMD ["uvicorn", "main:app", "--host", "0.0.0.0", "--port", "8000"]
`

const goDockerfile = `FROM golang:1.25 AS build

ENV CGO_ENABLED=0

WORKDIR /src

COPY go.mod go.sum ./

RUN go mod download

COPY . .

RUN go build -trimpath -ldflags="-s -w" -o /out/courses ./cmd/courses

FROM gcr.io/distroless/static-debian12

ENV COURSES_CONFIG_DIR=/app/config \
    COURSES_DATA_DIR=/app/data

WORKDIR /app

COPY --from=build /out/courses /usr/local/bin/courses

EXPOSE 8000

CMD ["courses", "serve", "--host", "0.0.0.0", "--port", "8000"]
`

func TestRender_Presets(t *testing.T) {
	tests := []struct {
		name   string
		recipe *Recipe
		want   string
	}{
		{"python", PythonService(), pythonDockerfile},
		{"go", GoService(GoOptions{}), goDockerfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, tt.recipe.Render(&sb))
			assert.Equal(t, tt.want, sb.String())
			assert.Equal(t, tt.want, tt.recipe.String())
		})
	}
}

func TestRender_ManifestBeforeSource(t *testing.T) {
	for _, name := range []string{"go", "python"} {
		t.Run(name, func(t *testing.T) {
			r, ok := Preset(name)
			require.True(t, ok)
			out := r.String()

			first := r.Stages[0]
			manifest := strings.Index(out, "COPY "+renderCopy(first.Manifest))
			install := strings.Index(out, "RUN "+first.Install[0])
			source := strings.Index(out, "COPY . .")
			require.True(t, manifest >= 0 && install >= 0 && source >= 0, out)
			assert.Less(t, manifest, install)
			assert.Less(t, install, source)
		})
	}
}

func TestDependencyInputs_ExcludeApplicationCode(t *testing.T) {
	py := PythonService()
	assert.Equal(t, []string{"requirements.txt"}, py.Stages[0].DependencyInputs())
	assert.NotContains(t, py.Stages[0].DependencyInputs(), "main.py")

	goRecipe := GoService(GoOptions{})
	assert.Equal(t, []string{"go.mod", "go.sum"}, goRecipe.Stages[0].DependencyInputs())
}

func TestPythonService_Contract(t *testing.T) {
	r := PythonService()
	env := r.Env()
	assert.Equal(t, "1", env["PYTHONUNBUFFERED"])
	assert.Equal(t, "1", env["PYTHONDONTWRITEBYTECODE"])

	addr, err := r.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", addr)
	assert.Equal(t, []int{ServicePort}, r.Stages[0].Expose)
}

func TestGoService_Contract(t *testing.T) {
	r := GoService(GoOptions{GoVersion: "1.24", Binary: "svc", Package: "./cmd/svc"})
	require.NoError(t, r.Validate())

	addr, err := r.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", addr)

	out := r.String()
	assert.Contains(t, out, "FROM golang:1.24 AS build")
	assert.Contains(t, out, "-o /out/svc ./cmd/svc")
	assert.Contains(t, out, "COPY --from=build /out/svc /usr/local/bin/svc")
	assert.Contains(t, out, `CMD ["svc", "serve"`)
}

func TestPreset_Unknown(t *testing.T) {
	_, ok := Preset("ruby")
	assert.False(t, ok)
}

func TestRender_EnvQuoting(t *testing.T) {
	r := PythonService()
	r.Stages[0].Env = []EnvVar{
		{Name: "PLAIN", Value: "1"},
		{Name: "GREETING", Value: "hello world"},
		{Name: "QUOTED", Value: `say "hi"`},
		{Name: "EMPTY", Value: ""},
	}
	out := r.String()
	assert.Contains(t, out, "ENV PLAIN=1 \\\n")
	assert.Contains(t, out, `GREETING="hello world"`)
	assert.Contains(t, out, `QUOTED="say \"hi\""`)
	assert.Contains(t, out, `EMPTY=""`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Recipe)
	}{
		{"no stages", func(r *Recipe) { r.Stages = nil }},
		{"no base image", func(r *Recipe) { r.Stages[0].BaseImage = "" }},
		{"install without manifest", func(r *Recipe) { r.Stages[0].Manifest = CopyStep{} }},
		{"whole context as manifest", func(r *Recipe) { r.Stages[0].Manifest.Sources = []string{"."} }},
		{"manifest without destination", func(r *Recipe) { r.Stages[0].Manifest.Dest = "" }},
		{"port zero", func(r *Recipe) { r.Stages[0].Expose = []int{0} }},
		{"port too large", func(r *Recipe) { r.Stages[0].Expose = []int{70000} }},
		{"no command", func(r *Recipe) { r.Stages[0].Cmd = nil }},
		{"unnamed env", func(r *Recipe) { r.Stages[0].Env = append(r.Stages[0].Env, EnvVar{Value: "x"}) }},
		{"copy from unknown stage", func(r *Recipe) {
			r.Stages[0].CopyFrom = []CopyFrom{{Stage: "nope", Source: "/a", Dest: "/b"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PythonService()
			tt.mutate(r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidRecipe)
			assert.ErrorIs(t, r.Render(&strings.Builder{}), ErrInvalidRecipe)
			assert.Empty(t, r.String())
		})
	}
}

func TestListenAddr_Errors(t *testing.T) {
	tests := []struct {
		name string
		cmd  []string
	}{
		{"no flags", []string{"courses", "serve"}},
		{"no port", []string{"courses", "--host", "0.0.0.0"}},
		{"dangling port", []string{"courses", "--host", "0.0.0.0", "--port"}},
		{"bad port", []string{"courses", "--host", "0.0.0.0", "--port", "http"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PythonService()
			r.Stages[0].Cmd = tt.cmd
			_, err := r.ListenAddr()
			assert.ErrorIs(t, err, ErrInvalidRecipe)
		})
	}
}

// The Dockerfile at the repository root is generated from the Go preset.
func TestRepositoryDockerfileIsCurrent(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "Dockerfile"))
	if os.IsNotExist(err) {
		t.Skip("no Dockerfile at the repository root")
	}
	require.NoError(t, err)
	assert.Equal(t, GoService(GoOptions{}).String(), string(data), "run `mage dockerfile` to regenerate")
}
