package di

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegisterAndResolve(t *testing.T) {
	c := NewContainer()

	if err := c.Register("greeting", func() string { return "hello" }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	val, err := c.Resolve("greeting")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if val != "hello" {
		t.Errorf("expected 'hello', got %v", val)
	}
}

func TestResolveNotRegistered(t *testing.T) {
	c := NewContainer()
	_, err := c.Resolve("nonexistent")
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	c := NewContainer()
	if err := c.RegisterSingleton("dup", 1); err != nil {
		t.Fatalf("RegisterSingleton failed: %v", err)
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"lazy", func() error { return c.Register("dup", func() int { return 2 }) }},
		{"eager", func() error { return c.RegisterEager("dup", func() int { return 2 }) }},
		{"singleton", func() error { return c.RegisterSingleton("dup", 3) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, ErrAlreadyRegistered) {
				t.Errorf("expected ErrAlreadyRegistered, got %v", err)
			}
		})
	}

	if v := c.MustResolve("dup"); v != 1 {
		t.Errorf("original registration must survive, got %v", v)
	}
}

func TestRegisterEager(t *testing.T) {
	c := NewContainer()
	called := false
	err := c.RegisterEager("eager", func() string {
		called = true
		return "eager-value"
	})
	if err != nil {
		t.Fatalf("RegisterEager failed: %v", err)
	}
	if !called {
		t.Error("expected constructor to be called immediately")
	}
	if v := c.MustResolve("eager"); v != "eager-value" {
		t.Errorf("unexpected value %v", v)
	}
}

func TestRegisterEagerWithError(t *testing.T) {
	c := NewContainer()
	err := c.RegisterEager("bad", func() (string, error) { return "", errors.New("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected constructor error, got %v", err)
	}
	if c.Has("bad") {
		t.Error("failed eager service must not be registered")
	}
}

func TestLazyConstructedOnce(t *testing.T) {
	c := NewContainer()
	var calls int32
	_ = c.Register("lazy", func() (*int, error) {
		atomic.AddInt32(&calls, 1)
		v := 42
		return &v, nil
	})

	if calls != 0 {
		t.Fatal("lazy constructor called before resolve")
	}

	var wg sync.WaitGroup
	results := make([]*int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Resolve[*int](c, "lazy")
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected one construction, got %d", got)
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatal("expected the same instance for every resolve")
		}
	}
}

func TestLazyFailureNotCached(t *testing.T) {
	c := NewContainer()
	fail := true
	_ = c.Register("flaky", func() (string, error) {
		if fail {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})

	if _, err := c.Resolve("flaky"); err == nil {
		t.Fatal("expected first resolve to fail")
	}
	fail = false
	if v, err := c.Resolve("flaky"); err != nil || v != "ok" {
		t.Fatalf("expected retry to succeed, got %v, %v", v, err)
	}
}

func TestContainerAwareConstructor(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton("base", "api")
	_ = c.Register("derived", func(c Container) (string, error) {
		base, err := Resolve[string](c, "base")
		if err != nil {
			return "", err
		}
		return "/" + base, nil
	})

	if v := MustResolve[string](c, "derived"); v != "/api" {
		t.Errorf("expected '/api', got %q", v)
	}
}

func TestContextAwareConstructor(t *testing.T) {
	c := NewContainer()
	_ = c.Register("ctx", func(ctx context.Context) (bool, error) { return ctx != nil, nil })
	if !MustResolve[bool](c, "ctx") {
		t.Error("expected a non-nil context")
	}
}

func TestInvalidConstructors(t *testing.T) {
	tests := []struct {
		name string
		ctor interface{}
	}{
		{"not a function", "value"},
		{"nil", nil},
		{"bad argument", func(int) string { return "" }},
		{"too many arguments", func(context.Context, Container) string { return "" }},
		{"no results", func() {}},
		{"second result not error", func() (string, int) { return "", 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := NewContainer().Register("x", tc.ctor); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGenericResolveTypeMismatch(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton("num", 42)

	if _, err := Resolve[string](c, "num"); err == nil {
		t.Error("expected type mismatch error")
	}
	if _, ok := TryResolve[string](c, "num"); ok {
		t.Error("expected TryResolve to fail on mismatch")
	}
	if _, ok := TryResolve[int](c, "missing"); ok {
		t.Error("expected TryResolve to fail on missing")
	}
	if v, ok := TryResolve[int](c, "num"); !ok || v != 42 {
		t.Errorf("expected 42, got %v %v", v, ok)
	}
}

func TestGenericMustResolvePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustResolve[string](NewContainer(), "missing")
}

type closer struct{ closed bool }

func (c *closer) Close() error { c.closed = true; return nil }

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }

func TestClose(t *testing.T) {
	c := NewContainer()
	single := &closer{}
	lazy := &closer{}
	unresolved := &closer{}
	_ = c.RegisterSingleton("single", single)
	_ = c.Register("lazy", func() *closer { return lazy })
	_ = c.Register("unresolved", func() *closer { return unresolved })
	_ = c.RegisterSingleton("failing", failingCloser{})
	_, _ = c.Resolve("lazy")

	err := c.Close()
	if err == nil || !strings.Contains(err.Error(), "close failed") {
		t.Errorf("expected joined close error, got %v", err)
	}
	if !single.closed || !lazy.closed {
		t.Error("expected constructed services to be closed")
	}
	if unresolved.closed {
		t.Error("unresolved lazy service must not be constructed or closed")
	}
}

func TestRegistrations(t *testing.T) {
	c := NewContainer()
	_ = c.RegisterSingleton("b", 1)
	_ = c.Register("a", func() int { return 2 })
	_ = c.RegisterEager("c", func() int { return 3 })

	regs := c.Registrations()
	if len(regs) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(regs))
	}
	want := []RegistrationInfo{
		{Key: "a", Mode: Lazy, Initialized: false},
		{Key: "b", Mode: Singleton, Initialized: true},
		{Key: "c", Mode: Eager, Initialized: true},
	}
	for i, w := range want {
		if regs[i] != w {
			t.Errorf("registration %d: expected %+v, got %+v", i, w, regs[i])
		}
	}
}

func TestRegistrationModeString(t *testing.T) {
	if Lazy.String() != "lazy" || Eager.String() != "eager" || Singleton.String() != "singleton" {
		t.Error("unexpected mode names")
	}
	if RegistrationMode(99).String() != "unknown" {
		t.Error("expected unknown for out-of-range mode")
	}
}

func TestHostNames(t *testing.T) {
	keys := []string{Host.Config, Host.Logger, Host.HTTPServer, Host.Controllers,
		Host.APIExplorer, Host.SwaggerGen, Host.TokenService, Host.Authorizer}
	seen := map[string]bool{}
	for _, k := range keys {
		if k == "" || seen[k] {
			t.Errorf("host key %q is empty or duplicated", k)
		}
		seen[k] = true
	}
}
