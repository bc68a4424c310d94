package lang

import (
	"regexp"
	"strings"
)

// statement is one unit of exec text. A bare expression has no name.
type statement struct {
	name string
	expr string
}

var assignment = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)\s*=([^=].*)?$`)

// splitStatements splits src on newlines and semicolons that are outside
// quotes and brackets. Blank statements and lines starting with '#' or
// "//" are skipped.
func splitStatements(src string) ([]statement, error) {
	var (
		out   []statement
		depth int
		quote rune
		start int
	)

	flush := func(end int) error {
		text := strings.TrimSpace(src[start:end])
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			return nil
		}

		st := statement{expr: text}

		if m := assignment.FindStringSubmatch(text); m != nil {
			st.name, st.expr = m[1], strings.TrimSpace(m[2])
			if st.expr == "" {
				return errEmptyAssigned
			}
		}

		out = append(out, st)

		return nil
	}

	escaped := false

	for i, r := range src {
		switch {
		case escaped:
			escaped = false

		case quote != 0:
			switch r {
			case '\\':
				escaped = quote != '`'
			case quote:
				quote = 0
			}

		case r == '"' || r == '\'' || r == '`':
			quote = r

		case r == '(' || r == '[' || r == '{':
			depth++

		case r == ')' || r == ']' || r == '}':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}

		case depth == 0 && (r == '\n' || r == ';'):
			if err := flush(i); err != nil {
				return nil, err
			}

			start = i + 1
		}
	}

	if depth != 0 || quote != 0 {
		return nil, errUnbalanced
	}

	if err := flush(len(src)); err != nil {
		return nil, err
	}

	return out, nil
}
