package registry

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/tcjs/internal/jserr"
)

type class struct{ name string }

func TestRegister_Idempotent(t *testing.T) {
	tbl := New(nil, nil)
	a := &class{"A"}
	if err := tbl.Register("A", a); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := tbl.Register("A", a); err != nil {
		t.Fatalf("second Register of the same class: %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
	got, ok := tbl.Lookup("A")
	if !ok || got != a {
		t.Errorf("Lookup(A) = %v, %v", got, ok)
	}
}

func TestRegister_Collision(t *testing.T) {
	tbl := New(nil, nil)
	if err := tbl.Register("A", &class{"A"}); err != nil {
		t.Fatal(err)
	}
	err := tbl.Register("A", &class{"A"})
	var re *jserr.ReferenceError
	if !errors.As(err, &re) {
		t.Fatalf("Register of a different class = %v, want *jserr.ReferenceError", err)
	}
	if !strings.Contains(re.Message(), "Redefinition of class 'A'") {
		t.Errorf("message = %q", re.Message())
	}
}

func TestRegister_AmbientCollision(t *testing.T) {
	globals := map[string]bool{"Map": true}
	tbl := New(nil, func(name string) bool { return globals[name] })
	if err := tbl.Register("Map", &class{"Map"}); jserr.KindOf(err) != "ReferenceError" {
		t.Errorf("Register(Map) = %v, want ReferenceError", err)
	}
	if err := tbl.Register("Point", &class{"Point"}); err != nil {
		t.Errorf("Register(Point) = %v", err)
	}
}

func TestRegister_CustomEquality(t *testing.T) {
	tbl := New(func(a, b any) bool { return a.(*class).name == b.(*class).name }, nil)
	if err := tbl.Register("A", &class{"A"}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Register("A", &class{"A"}); err != nil {
		t.Errorf("equal classes should register idempotently: %v", err)
	}
}

func TestRegister_EmptyName(t *testing.T) {
	if err := New(nil, nil).Register("", &class{}); err == nil {
		t.Error("Register with an empty name succeeded")
	}
}

func TestNames(t *testing.T) {
	tbl := New(nil, nil)
	for _, n := range []string{"C", "A", "B"} {
		if err := tbl.Register(n, &class{n}); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, tbl.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tbl.Lookup("D"); ok {
		t.Error("Lookup(D) found an unregistered name")
	}
}

func TestConcurrentRegister(t *testing.T) {
	tbl := New(nil, nil)
	shared := &class{"Shared"}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tbl.Register("Shared", shared); err != nil {
				t.Errorf("Register: %v", err)
			}
			tbl.Lookup("Shared")
		}()
	}
	wg.Wait()
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}
