package devices

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const idSuffix = "_id"

// Registry manages the constructors for each device kind.
// It is safe to register and classify concurrently.
type Registry struct {
	mu    sync.RWMutex
	ctors map[Tag]Constructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[Tag]Constructor),
	}
}

// Register adds a constructor for tag. Registering the same tag again replaces it.
func (r *Registry) Register(tag Tag, ctor Constructor) error {
	if tag == "" {
		return fmt.Errorf("%w: empty tag", ErrInvalidRegistration)
	}
	if ctor == nil {
		return fmt.Errorf("%w: nil constructor for %q", ErrInvalidRegistration, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctors[tag] = ctor
	return nil
}

// Unregister removes tag, reporting whether it was present
func (r *Registry) Unregister(tag Tag) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctors[tag]; !exists {
		return false
	}
	delete(r.ctors, tag)
	return true
}

// Registered reports whether tag has a constructor
func (r *Registry) Registered(tag Tag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.ctors[tag]
	return ok
}

// Tags returns all registered tags, sorted
func (r *Registry) Tags() []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]Tag, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Classify returns the kind of d: the first key, in descriptor order, that
// ends in "_id" and whose prefix is a registered tag. Records with no such
// key report false and are meant to be skipped.
func (r *Registry) Classify(d Descriptor) (Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range d.keys {
		if tag, ok := r.match(key); ok {
			return tag, true
		}
	}
	return "", false
}

// Candidates returns every registered kind d could be classified as, in key order.
// Classify always picks the first one.
func (r *Registry) Candidates(d Descriptor) []Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tags []Tag
	for _, key := range d.keys {
		if tag, ok := r.match(key); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

// match must be called with r.mu held
func (r *Registry) match(key string) (Tag, bool) {
	if !strings.HasSuffix(key, idSuffix) {
		return "", false
	}
	tag := Tag(strings.TrimSuffix(key, idSuffix))
	if _, ok := r.ctors[tag]; !ok {
		return "", false
	}
	return tag, true
}

// Construct builds a device of kind tag from d
func (r *Registry) Construct(owner Owner, tag Tag, d Descriptor) (Device, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnregisteredTypeError{Tag: tag}
	}

	device := ctor(owner, d)
	if device == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilDevice, tag)
	}
	return device, nil
}

// Build classifies d and constructs it. ok is false when d matches no registered kind.
func (r *Registry) Build(owner Owner, d Descriptor) (device Device, ok bool, err error) {
	tag, ok := r.Classify(d)
	if !ok {
		return nil, false, nil
	}
	device, err = r.Construct(owner, tag, d)
	if err != nil {
		return nil, true, err
	}
	return device, true, nil
}
