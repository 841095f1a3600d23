package typeexpr

import "sync"

// Cache memoizes successful parses by annotation text. The zero value is
// ready to use and safe for concurrent use.
type Cache struct {
	m sync.Map // string -> *Expr
}

// Parse returns the cached expression for s, parsing it on first use.
// Failures are not cached.
func (c *Cache) Parse(s string) (*Expr, error) {
	if e, ok := c.m.Load(s); ok {
		return e.(*Expr), nil
	}
	e, err := Parse(s)
	if err != nil {
		return nil, err
	}
	actual, _ := c.m.LoadOrStore(s, e)
	return actual.(*Expr), nil
}
