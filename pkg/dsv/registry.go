package dsv

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"sigs.k8s.io/yaml"
)

// Registry maps format names to preset Formats. It is safe for concurrent
// use; readers and writers resolve their dialect from it once, at creation.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format
}

// NewRegistry returns a registry holding the built-in csv, csv_rfc, and
// tsv presets.
func NewRegistry() *Registry {
	return &Registry{formats: presets()}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when
// Options.Registry is nil.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds or replaces the preset called name. A registered preset is
// taken as a whole; it does not inherit from the preset it replaces.
func (r *Registry) Register(name string, f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[name] = f.clone()
}

// RegisterFormats registers every entry of formats.
func (r *Registry) RegisterFormats(formats map[string]Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, f := range formats {
		r.formats[name] = f.clone()
	}
}

// Lookup returns the preset called name.
func (r *Registry) Lookup(name string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	if !ok {
		return Format{}, false
	}
	return f.clone(), true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Formats returns a copy of every registered preset.
func (r *Registry) Formats() map[string]Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Format, len(r.formats))
	for name, f := range r.formats {
		out[name] = f.clone()
	}
	return out
}

// Load registers the formats decoded from a YAML or JSON document.
func (r *Registry) Load(rd io.Reader) error {
	formats, err := LoadFormats(rd)
	if err != nil {
		return err
	}
	r.RegisterFormats(formats)
	return nil
}

// LoadFile registers the formats defined in the YAML or JSON file at path.
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &IOError{Op: "open", Path: path, Offset: -1, Err: err}
	}
	defer f.Close()
	if err := r.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadFormats decodes a document mapping format names to Formats:
//
//	pipe:
//	  delimiter: "|"
//	  quote: "'"
//	  escaped_quote: "''"
//	  quote_mode: quote_strict
func LoadFormats(rd io.Reader) (map[string]Format, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	var formats map[string]Format
	if err := yaml.UnmarshalStrict(data, &formats); err != nil {
		return nil, fmt.Errorf("dsv: decode formats: %w", err)
	}
	for name, f := range formats {
		if f.QuoteMode != nil && !f.QuoteMode.Valid() {
			return nil, &OptionsError{Field: "quote_mode", Message: fmt.Sprintf("format %q: unknown mode %q", name, *f.QuoteMode)}
		}
	}
	return formats, nil
}

// RegisterFormats registers formats in the default registry.
func RegisterFormats(formats map[string]Format) {
	defaultRegistry.RegisterFormats(formats)
}

// RegisteredFormats returns a copy of the default registry's presets.
func RegisteredFormats() map[string]Format {
	return defaultRegistry.Formats()
}
