// Package stdlib is the registry of a7 standard-library modules. The
// preprocessor resolves `module.method` calls and bare builtin names to
// canonical dotted identifiers; the emitter maps canonicals to
// backend-specific code.
package stdlib

import "strings"

// Function is one stdlib function with its per-backend implementations.
type Function struct {
	Module    string            // "io"
	Name      string            // "println"
	Canonical string            // "std.io.println"
	Backends  map[string]string // {"zig": "std.debug.print"}
}

// Module groups the functions of one stdlib module.
type Module struct {
	Name      string
	Functions map[string]*Function
}

// NewModule builds an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, Functions: make(map[string]*Function)}
}

// Registry holds every registered module and bare builtin name.
type Registry struct {
	modules  map[string]*Module
	builtins map[string]*Function
}

// NewRegistry builds a registry with the default modules (io, math, mem,
// string) registered.
func NewRegistry() *Registry {
	r := &Registry{
		modules:  make(map[string]*Module),
		builtins: make(map[string]*Function),
	}
	registerIO(r)
	registerMath(r)
	registerMem(r)
	registerString(r)
	return r
}

// RegisterModule adds or replaces a module.
func (r *Registry) RegisterModule(m *Module) {
	r.modules[m.Name] = m
}

// RegisterBuiltin binds a bare name (e.g. sqrt_f32) to a stdlib function.
func (r *Registry) RegisterBuiltin(name string, fn *Function) {
	r.builtins[name] = fn
}

// ResolveCall resolves module.method to its canonical name, or "".
func (r *Registry) ResolveCall(module, method string) string {
	m, ok := r.modules[module]
	if !ok {
		return ""
	}
	fn, ok := m.Functions[method]
	if !ok {
		return ""
	}
	return fn.Canonical
}

// ResolveBuiltin resolves a bare builtin name to its canonical name,
// or "".
func (r *Registry) ResolveBuiltin(name string) string {
	fn, ok := r.builtins[name]
	if !ok {
		return ""
	}
	return fn.Canonical
}

// BackendMapping returns the backend-specific code for a canonical
// stdlib name, or "".
func (r *Registry) BackendMapping(canonical, backend string) string {
	for _, m := range r.modules {
		for _, fn := range m.Functions {
			if fn.Canonical == canonical {
				return fn.Backends[backend]
			}
		}
	}
	for _, fn := range r.builtins {
		if fn.Canonical == canonical {
			return fn.Backends[backend]
		}
	}
	return ""
}

// IsIOCall reports whether module.method is an I/O call; the emitter
// handles those at statement level.
func (r *Registry) IsIOCall(module, method string) bool {
	canonical := r.ResolveCall(module, method)
	return canonical != "" && strings.HasPrefix(canonical, "std.io.")
}

// IsModule reports whether name is a registered stdlib module. Used by
// the name resolver to let module names resolve implicitly.
func (r *Registry) IsModule(name string) bool {
	_, ok := r.modules[name]
	return ok
}

// IsBuiltinName reports whether name is a registered bare builtin.
func (r *Registry) IsBuiltinName(name string) bool {
	_, ok := r.builtins[name]
	return ok
}

func registerIO(r *Registry) {
	m := NewModule("io")
	for _, name := range []string{"println", "print", "eprintln"} {
		m.Functions[name] = &Function{
			Module:    "io",
			Name:      name,
			Canonical: "std.io." + name,
			Backends:  map[string]string{"zig": "std.debug.print"},
		}
	}
	r.RegisterModule(m)
}

func registerMath(r *Registry) {
	m := NewModule("math")

	mathFuncs := map[string]string{
		"sqrt":  "@sqrt",
		"abs":   "@abs",
		"floor": "@floor",
		"ceil":  "@ceil",
		"sin":   "@sin",
		"cos":   "@cos",
		"tan":   "@tan",
		"log":   "@log",
		"exp":   "@exp",
		"min":   "@min",
		"max":   "@max",
	}

	for name, zigBuiltin := range mathFuncs {
		fn := &Function{
			Module:    "math",
			Name:      name,
			Canonical: "std.math." + name,
			Backends:  map[string]string{"zig": zigBuiltin},
		}
		m.Functions[name] = fn

		// Typed variants are reachable as bare builtins: sqrt_f32,
		// sqrt_f64, and so on.
		for _, suffix := range []string{"_f32", "_f64"} {
			r.RegisterBuiltin(name+suffix, &Function{
				Module:    "math",
				Name:      name + suffix,
				Canonical: "std.math." + name,
				Backends:  map[string]string{"zig": zigBuiltin},
			})
		}
	}

	r.RegisterModule(m)
}

func registerMem(r *Registry) {
	r.RegisterModule(NewModule("mem"))
}

func registerString(r *Registry) {
	r.RegisterModule(NewModule("string"))
}
