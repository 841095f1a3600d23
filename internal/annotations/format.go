package annotations

import "bytes"

// Canonical returns the canonical spelling of a parsed annotation.
func (a *Annotation) Canonical() string {
	if a.Expr == nil {
		return ""
	}
	return "/*: " + a.Expr.String() + " */"
}

// Format rewrites every well-formed annotation of src into its canonical
// spelling and reports how many were changed. Malformed annotations are
// left untouched.
func Format(src []byte) ([]byte, int) {
	f := newFile("", src)
	var buf bytes.Buffer
	last, changed := 0, 0
	for _, a := range f.Annotations {
		canon := a.Canonical()
		if canon == "" || canon == f.src[a.Start:a.End] {
			continue
		}
		buf.WriteString(f.src[last:a.Start])
		buf.WriteString(canon)
		last = a.End
		changed++
	}
	if changed == 0 {
		return src, 0
	}
	buf.WriteString(f.src[last:])
	return buf.Bytes(), changed
}
