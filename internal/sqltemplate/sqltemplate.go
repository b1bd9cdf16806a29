// Package sqltemplate assembles parameterized SQL from a base statement and
// optional predicate fragments. Statements use named :param placeholders and
// are rendered down to the driver's positional $n form by Build. The package
// never touches a connection, so templates are unit-testable in isolation.
package sqltemplate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clubware/billing-service/internal/apperrors"
)

type param struct {
	name  string
	value any
}

// Template is a base statement plus zero or more predicate fragments and
// their named parameters. The zero value is not usable; call New.
type Template struct {
	base       string
	predicates []string
	params     []param
	index      map[string]struct{}
}

func New(base string) *Template {
	return &Template{
		base:  base,
		index: make(map[string]struct{}),
	}
}

// Bind attaches a named parameter value. Binding the same name twice is a
// validation error, never a silent overwrite.
func (t *Template) Bind(name string, value any) error {
	if name == "" {
		return apperrors.Validation("template parameter name must not be empty")
	}
	if _, dup := t.index[name]; dup {
		return apperrors.Validation("duplicate template parameter %q", name)
	}
	t.index[name] = struct{}{}
	t.params = append(t.params, param{name: name, value: value})
	return nil
}

// BindAll binds every entry of params. Names are bound in sorted order so the
// rendered argument list is deterministic.
func (t *Template) BindAll(params map[string]any) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := t.Bind(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// Where appends a predicate fragment with its named parameters. The first
// fragment is joined to the base with WHERE, subsequent ones with AND.
func (t *Template) Where(fragment string, params map[string]any) error {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return apperrors.Validation("empty predicate fragment")
	}
	if err := t.BindAll(params); err != nil {
		return err
	}
	t.predicates = append(t.predicates, fragment)
	return nil
}

// Build renders the final statement text and the ordered argument list.
// With no predicates the base statement is returned unmodified (modulo
// placeholder rendering). Every bound parameter must be referenced by the
// statement and every :reference must be bound.
func (t *Template) Build() (string, []any, error) {
	text := t.base
	if len(t.predicates) > 0 {
		text = strings.TrimRight(strings.TrimSpace(text), ";")
		text += "\nWHERE " + strings.Join(t.predicates, "\n  AND ")
	}

	ordinal := make(map[string]int, len(t.params))
	args := make([]any, len(t.params))
	for i, p := range t.params {
		ordinal[p.name] = i + 1
		args[i] = p.value
	}

	seen := make(map[string]bool, len(t.params))
	var rendered strings.Builder
	var badRef error
	rendered.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		if c != ':' {
			rendered.WriteByte(c)
			i++
			continue
		}
		// "::" is a cast, not a parameter
		if i+1 < len(text) && text[i+1] == ':' {
			rendered.WriteString("::")
			i += 2
			continue
		}
		name := scanIdent(text[i+1:])
		if name == "" {
			rendered.WriteByte(c)
			i++
			continue
		}
		n, ok := ordinal[name]
		if !ok {
			badRef = apperrors.Validation("statement references unbound parameter %q", name)
			break
		}
		seen[name] = true
		fmt.Fprintf(&rendered, "$%d", n)
		i += 1 + len(name)
	}
	if badRef != nil {
		return "", nil, badRef
	}
	for _, p := range t.params {
		if !seen[p.name] {
			return "", nil, apperrors.Validation("bound parameter %q is not referenced by the statement", p.name)
		}
	}
	return rendered.String(), args, nil
}

func scanIdent(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return s[:i]
	}
	return s
}
