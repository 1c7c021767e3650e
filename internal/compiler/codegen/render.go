package codegen

import (
	"bytes"
	"go/format"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// Header is the first line of every generated file.
const Header = "// Code generated by fielder. DO NOT EDIT."

const holderTemplate = `{{ .Header }}

package {{ .Spec.Package }}

import (
	"iter"
	"slices"
)

// {{ .Spec.Name }} yields the field names of {{ .Spec.Origin }} and its ancestors in lexicographic order.
func {{ .Spec.Name }}() iter.Seq[string] {
	return slices.Values([]string{
{{- range .Spec.Fields }}
		{{ quote . }},
{{- end }}
	})
}
`

var holder = template.Must(
	template.New("holder").Funcs(sprig.TxtFuncMap()).Parse(holderTemplate),
)

// Render produces gofmt-formatted Go source for spec. Rendering the same
// spec always yields the same bytes.
func Render(spec ArtifactSpec) ([]byte, error) {
	if spec.Package == "" {
		return nil, errors.Newf("artifact %s has no package", spec.Name)
	}

	var buf bytes.Buffer
	data := struct {
		Header string
		Spec   ArtifactSpec
	}{Header: Header, Spec: spec}
	if err := holder.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "render %s", spec.Name)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.WithDetail(
			errors.Wrapf(err, "format %s", spec.Name),
			buf.String(),
		)
	}
	return src, nil
}
