package lsp

import (
	"fmt"
	"strings"

	"github.com/albertocavalcante/tcjs/internal/annotations"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// hoverMarkdown describes the annotation a.
func hoverMarkdown(a *annotations.Annotation) string {
	var b strings.Builder
	if a.Err != nil {
		b.WriteString("**Invalid annotation**\n\n")
		fmt.Fprintf(&b, "```\n%s\n```", a.Err.Error())
		return b.String()
	}

	fmt.Fprintf(&b, "```js\n%s\n```\n\n", a.Canonical())
	b.WriteString(describe(a.Expr))
	return b.String()
}

// describe explains what values e matches.
func describe(e *typeexpr.Expr) string {
	if e.IsUnion() {
		branches := e.Branches()
		var b strings.Builder
		fmt.Fprintf(&b, "Union of %d types:\n", len(branches))
		for _, br := range branches {
			fmt.Fprintf(&b, "- `%s`: %s\n", br.String(), describe(br))
		}
		return b.String()
	}
	if e.IsTuple() {
		n := len(e.Tuple())
		if n == 1 {
			return "Tuple of 1 element"
		}
		return fmt.Sprintf("Tuple of %d elements", n)
	}

	switch raw := e.RawType(); raw {
	case typeexpr.TypeVar:
		return "Any value"
	case typeexpr.TypeNull:
		return "The value `null`"
	case typeexpr.TypeUndefined, typeexpr.TypeVoid:
		return "The value `undefined`"
	case typeexpr.TypeNaN:
		return "The number `NaN`"
	case typeexpr.TypeFunction:
		return "A plain function, not a class"
	case typeexpr.TypeGenerator:
		return "A generator function"
	case typeexpr.TypeAsync:
		return "An async function"
	case typeexpr.TypeAsyncGenerator:
		return "An async generator function"
	case typeexpr.TypeClass:
		return "A class"
	case typeexpr.ContainerMap:
		switch {
		case e.KeyType() != nil:
			return fmt.Sprintf("A `Map` from `%s` to `%s`", e.KeyType(), e.ValueType())
		case e.ValueType() != nil:
			return fmt.Sprintf("A `Map` whose values are `%s`", e.ValueType())
		}
		return "A `Map`"
	case typeexpr.ContainerArray, typeexpr.ContainerSet:
		if v := e.ValueType(); v != nil {
			return fmt.Sprintf("A `%s` whose elements are `%s`", raw, v)
		}
		return fmt.Sprintf("An instance of `%s`", raw)
	default:
		return fmt.Sprintf("An instance of `%s`, resolved through the registry, then the global scope", raw)
	}
}
