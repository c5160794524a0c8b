// Package adapters binds the playback interfaces to the host desktop.
package adapters

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pepperonas/Affentanz/internal/input"
	"github.com/pepperonas/Affentanz/internal/screen"
)

// ErrUnknownBackend is returned when no backend is registered under a name.
var ErrUnknownBackend = errors.New("unknown desktop backend")

// Options configure a backend when it is opened.
type Options struct {
	// OCRLanguage is the tesseract language used for text conditions.
	OCRLanguage string

	// DisableOCR leaves the desktop without a recognizer; text conditions
	// then fail with screen.ErrOCRUnavailable.
	DisableOCR bool
}

// Backend is an opened set of desktop adapters.
type Backend struct {
	Name     string
	Injector input.Injector
	Desktop  *screen.Desktop

	close func() error
}

// Close releases the resources held by the backend.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Factory opens a backend.
type Factory func(opts Options) (*Backend, error)

// Registry manages named backend factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry.
// Returns an error if a factory with the same name is already registered.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || factory == nil {
		return fmt.Errorf("backend name and factory are required")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister adds a factory to the registry, panicking on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the named backend.
func (r *Registry) Open(name string, opts Options) (*Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, r.Names())
	}
	backend, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", name, err)
	}
	backend.Name = name
	return backend, nil
}

// Backend names.
const (
	BackendRobot  = "robotgo"
	BackendDryRun = "dry-run"
)

// DefaultRegistry holds the built-in backends.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(BackendRobot, openRobot)
	r.MustRegister(BackendDryRun, openDryRun)
	return r
}

// Open creates a backend from the default registry.
func Open(name string, opts Options) (*Backend, error) {
	return DefaultRegistry.Open(name, opts)
}

// Names returns the names of the built-in backends.
func Names() []string {
	return DefaultRegistry.Names()
}

func openRobot(opts Options) (*Backend, error) {
	desktop, closeDesktop, err := OpenDesktop(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Injector: NewRobotInjector(),
		Desktop:  desktop,
		close:    closeDesktop,
	}, nil
}

// openDryRun probes the real screen but only logs input.
func openDryRun(opts Options) (*Backend, error) {
	desktop, closeDesktop, err := OpenDesktop(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Injector: NewLogInjector(),
		Desktop:  desktop,
		close:    closeDesktop,
	}, nil
}

// OpenDesktop opens the host screen probe without an input injector. The
// returned func releases the recognizer.
func OpenDesktop(opts Options) (*screen.Desktop, func() error, error) {
	display := NewRobotDisplay()
	if display.NumDisplays() == 0 {
		return nil, nil, fmt.Errorf("%w: no displays detected", screen.ErrUnknownMonitor)
	}
	if opts.DisableOCR {
		return screen.NewDesktop(display, nil), func() error { return nil }, nil
	}
	recognizer := NewTesseractRecognizer(opts.OCRLanguage)
	return screen.NewDesktop(display, recognizer), recognizer.Close, nil
}
