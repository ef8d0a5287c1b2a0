package imagerecipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
)

const dockerfileTemplate = `
{{- range $i, $s := .Stages}}
{{- if $i}}

{{end -}}
FROM {{$s.BaseImage}}{{with $s.Name}} AS {{.}}{{end}}
{{- with $s.Env}}

ENV {{env .}}
{{- end}}
{{- with $s.WorkDir}}

WORKDIR {{.}}
{{- end}}
{{- if $s.Manifest.Sources}}

COPY {{copyArgs $s.Manifest}}
{{- end}}
{{- with $s.Install}}

RUN {{shell .}}
{{- end}}
{{- if $s.Source.Sources}}

COPY {{copyArgs $s.Source}}
{{- end}}
{{- with $s.Build}}

RUN {{shell .}}
{{- end}}
{{- range $s.CopyFrom}}

COPY --from={{.Stage}} {{.Source}} {{.Dest}}
{{- end}}
{{- range $s.Expose}}

EXPOSE {{.}}
{{- end}}
{{- with $s.Cmd}}

CMD {{execForm .}}
{{- end}}
{{- end}}
`

var dockerfile = template.Must(template.New("Dockerfile").Funcs(template.FuncMap{
	"env":      renderEnv,
	"shell":    renderShell,
	"copyArgs": renderCopy,
	"execForm": renderExecForm,
}).Parse(dockerfileTemplate))

// Render validates the recipe and writes it as a Dockerfile.
func (r *Recipe) Render(w io.Writer) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := dockerfile.Execute(&buf, r); err != nil {
		return fmt.Errorf("rendering Dockerfile: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// String renders the recipe, or returns an empty string when it is invalid.
func (r *Recipe) String() string {
	var sb strings.Builder
	if err := r.Render(&sb); err != nil {
		return ""
	}
	return sb.String()
}

const continuation = " \\\n    "

func renderEnv(env []EnvVar) string {
	parts := make([]string, len(env))
	for i, e := range env {
		parts[i] = e.Name + "=" + envValue(e.Value)
	}
	return strings.Join(parts, continuation)
}

// envValue double-quotes values that would otherwise split or end the
// ENV instruction.
func envValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\n\"'\\") {
		return strconv.Quote(v)
	}
	return v
}

func renderShell(cmds []string) string {
	return strings.Join(cmds, " &&"+continuation)
}

func renderCopy(c CopyStep) string {
	return strings.Join(append(append([]string{}, c.Sources...), c.Dest), " ")
}

func renderExecForm(args []string) (string, error) {
	quoted := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", err
		}
		quoted[i] = string(b)
	}
	return "[" + strings.Join(quoted, ", ") + "]", nil
}
