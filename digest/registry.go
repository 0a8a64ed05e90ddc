package digest

import (
	"fmt"
	"sync"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

// Registry is an ordered, insert-once collection of digesters. Registration
// order is the only dependency mechanism: a digester that consumes another's
// output must register after its producer. The registry is populated once at
// process start and treated as immutable afterwards.
type Registry struct {
	mu        sync.RWMutex
	digesters []Digester
	byName    map[string]Digester
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Digester),
	}
}

// DefaultRegistry is the process-wide registry
var DefaultRegistry = NewRegistry()

// Register appends a digester. Duplicate names are rejected.
func (r *Registry) Register(d Digester) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name()]; exists {
		return fmt.Errorf("digester %q already registered", d.Name())
	}

	r.digesters = append(r.digesters, d)
	r.byName[d.Name()] = d
	return nil
}

// All returns all registered digesters in registration order
func (r *Registry) All() []Digester {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Digester, len(r.digesters))
	copy(result, r.digesters)
	return result
}

// Get returns a digester by name, or nil
func (r *Registry) Get(name string) Digester {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// AllOutputNames returns the union of every registered digester's output names
func (r *Registry) AllOutputNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	seen := make(map[string]bool)
	for _, d := range r.digesters {
		for _, name := range d.OutputNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Reset removes all registered digesters. Tests use this to rebuild the
// process-local registry between cases.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.digesters = nil
	r.byName = make(map[string]Digester)
}

// Info describes a digester for the operational API
type Info struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Outputs     []string `json:"outputs"`
}

// DigesterInfo returns information about all registered digesters
func (r *Registry) DigesterInfo() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Info, 0, len(r.digesters))
	for _, d := range r.digesters {
		result = append(result, Info{
			Name:        d.Name(),
			Label:       d.Label(),
			Description: d.Description(),
			Outputs:     d.OutputNames(),
		})
	}
	return result
}

// InitializeRegistry registers the reference digester set in its fixed order.
//
// Phase 1: content extraction. Phase 2: derived text (depends on phase 1
// outputs). Phase 3: search indexing (depends on everything before it).
func InitializeRegistry() {
	ordered := []Digester{
		// Phase 1: content extraction
		&URLCrawlDigester{},
		&DocToMarkdownDigester{},
		&DocToScreenshotDigester{},
		&ImagePreviewDigester{},
		&ImageOCRDigester{},
		&SpeechRecognitionDigester{},

		// Phase 2: derived text
		&URLCrawlSummaryDigester{},
		&TagsDigester{},
		&SlugDigester{},

		// Phase 3: search indexing
		&SearchKeywordDigester{},
		&SearchSemanticDigester{},
	}

	for _, d := range ordered {
		if err := DefaultRegistry.Register(d); err != nil {
			log.Fatal().Err(err).Msg("failed to register digester")
		}
	}

	log.Info().Int("count", len(ordered)).Msg("digesters registered")
}
