package template

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// ToMap describes the compiled tree as plain data.
func (t *Template) ToMap() map[string]any {
	return map[string]any{
		"encoding": t.encoding,
		"root":     t.root.ToMap(),
	}
}

// FormatJSON writes the compiled tree as JSON to the writer.
func (t *Template) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(t.ToMap(), "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(t.ToMap())
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the compiled tree as YAML to the writer. A zero indent
// selects flow style.
func (t *Template) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, t.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}
