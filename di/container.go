package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/mywebapi/logger"
)

// RegistrationMode determines how a service is constructed.
type RegistrationMode int

const (
	Eager     RegistrationMode = iota // Constructed at registration time
	Lazy                              // Constructed on first resolve
	Singleton                         // Pre-created instance
)

// String returns the mode name used in startup summaries.
func (m RegistrationMode) String() string {
	switch m {
	case Eager:
		return "eager"
	case Lazy:
		return "lazy"
	case Singleton:
		return "singleton"
	default:
		return "unknown"
	}
}

var (
	// ErrNotRegistered is returned when resolving an unknown key.
	ErrNotRegistered = errors.New("service not registered")
	// ErrAlreadyRegistered is returned when a key is registered twice.
	ErrAlreadyRegistered = errors.New("service already registered")
)

// Container is the service registry the application builder populates.
//
// Constructors are functions of one of these shapes:
//
//	func() T
//	func() (T, error)
//	func(context.Context) (T, error)
//	func(di.Container) (T, error)
type Container interface {
	Register(key string, constructor interface{}) error
	RegisterLazy(key string, constructor interface{}) error
	RegisterEager(key string, constructor interface{}) error
	RegisterSingleton(key string, instance interface{}) error
	Resolve(key string) (interface{}, error)
	MustResolve(key string) interface{}
	Has(key string) bool
	Close() error

	// Registrations lists every registered service, sorted by key.
	Registrations() []RegistrationInfo
}

// RegistrationInfo describes a registered service for introspection.
type RegistrationInfo struct {
	Key         string
	Mode        RegistrationMode
	Initialized bool
}

type registration struct {
	key         string
	constructor interface{}
	mode        RegistrationMode

	mu          sync.Mutex
	instance    interface{}
	initialized bool
}

type container struct {
	mu            sync.RWMutex
	registrations map[string]*registration
}

// NewContainer returns an empty container.
func NewContainer() Container {
	return &container{registrations: make(map[string]*registration)}
}

// Register registers a lazily constructed service (the common case).
func (c *container) Register(key string, constructor interface{}) error {
	return c.RegisterLazy(key, constructor)
}

// RegisterLazy registers a service constructed on first Resolve.
func (c *container) RegisterLazy(key string, constructor interface{}) error {
	if err := checkConstructor(constructor); err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	return c.add(&registration{key: key, constructor: constructor, mode: Lazy})
}

// RegisterEager constructs the service immediately and registers the result.
func (c *container) RegisterEager(key string, constructor interface{}) error {
	if err := checkConstructor(constructor); err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	if c.Has(key) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, key)
	}
	instance, err := c.call(constructor)
	if err != nil {
		return fmt.Errorf("failed to initialize eager service '%s': %w", key, err)
	}
	return c.add(&registration{key: key, constructor: constructor, mode: Eager, instance: instance, initialized: true})
}

// RegisterSingleton registers a pre-created instance.
func (c *container) RegisterSingleton(key string, instance interface{}) error {
	return c.add(&registration{key: key, mode: Singleton, instance: instance, initialized: true})
}

func (c *container) add(reg *registration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.registrations[reg.key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, reg.key)
	}
	c.registrations[reg.key] = reg
	return nil
}

// Has reports whether key is registered.
func (c *container) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.registrations[key]
	return ok
}

// Resolve returns the instance registered under key, constructing it on
// first use for lazy registrations. A failed construction is not cached.
func (c *container) Resolve(key string) (interface{}, error) {
	c.mu.RLock()
	reg, ok := c.registrations[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.initialized {
		return reg.instance, nil
	}

	instance, err := c.call(reg.constructor)
	if err != nil {
		logger.Debug("Lazy service initialization failed", map[string]interface{}{
			"service": key,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("failed to initialize lazy service '%s': %w", key, err)
	}
	reg.instance = instance
	reg.initialized = true
	logger.Debug("Lazy service initialized", map[string]interface{}{"service": key})
	return instance, nil
}

// MustResolve is Resolve that panics on error.
func (c *container) MustResolve(key string) interface{} {
	instance, err := c.Resolve(key)
	if err != nil {
		panic(err)
	}
	return instance
}

// Registrations returns info about every registered service, sorted by key.
func (c *container) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.registrations))
	for key, reg := range c.registrations {
		reg.mu.Lock()
		result = append(result, RegistrationInfo{Key: key, Mode: reg.mode, Initialized: reg.initialized})
		reg.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Close closes every constructed instance that implements io.Closer and
// returns the joined errors.
func (c *container) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for key, reg := range c.registrations {
		reg.mu.Lock()
		instance, initialized := reg.instance, reg.initialized
		reg.mu.Unlock()
		if !initialized {
			continue
		}
		if closer, ok := instance.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", key, err))
			}
		}
	}
	return errors.Join(errs...)
}

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	containerType = reflect.TypeOf((*Container)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

func checkConstructor(constructor interface{}) error {
	fnType := reflect.TypeOf(constructor)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("constructor must be a function, got %T", constructor)
	}
	switch fnType.NumIn() {
	case 0:
	case 1:
		if in := fnType.In(0); in != contextType && in != containerType {
			return fmt.Errorf("constructor argument must be context.Context or di.Container, got %s", in)
		}
	default:
		return fmt.Errorf("constructor takes at most one argument")
	}
	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return fmt.Errorf("constructor second result must be error")
		}
	default:
		return fmt.Errorf("constructor must return either (instance) or (instance, error)")
	}
	return nil
}

func (c *container) call(constructor interface{}) (interface{}, error) {
	fn := reflect.ValueOf(constructor)
	fnType := fn.Type()

	var args []reflect.Value
	if fnType.NumIn() == 1 {
		if fnType.In(0) == contextType {
			args = []reflect.Value{reflect.ValueOf(context.Background())}
		} else {
			args = []reflect.Value{reflect.ValueOf(Container(c))}
		}
	}

	results := fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}
