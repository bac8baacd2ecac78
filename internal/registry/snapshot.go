package registry

// binding is one captured key state: either a concrete value or an
// explicit record of absence.
type binding struct {
	value   any
	present bool
}

// Snapshot accumulates the pre-scope bindings of a set of registry keys so
// they can be restored exactly, including keys that did not exist when they
// were saved. A snapshot belongs to a single substitution scope and is
// consumed by the matching Restore.
type Snapshot struct {
	reg   Registry
	saved map[string]binding
	order []string
}

// NewSnapshot creates an empty snapshot over reg.
func NewSnapshot(reg Registry) *Snapshot {
	return &Snapshot{
		reg:   reg,
		saved: make(map[string]binding),
	}
}

// Save records the current binding (or absence) of each name. The first
// recorded binding per name wins: saving a name that was already captured
// is a no-op, which preserves the true pre-scope state even when Save runs
// again later in the same scope for an overlapping key set.
func (s *Snapshot) Save(names ...string) {
	for _, name := range names {
		if _, exists := s.saved[name]; exists {
			continue
		}
		value, present := s.reg.Get(name)
		s.saved[name] = binding{value: value, present: present}
		s.order = append(s.order, name)
	}
}

// Restore writes every saved binding back into the registry: recorded
// values are set, recorded absences are deleted. Keys are restored in the
// order they were first saved.
func (s *Snapshot) Restore() {
	for _, name := range s.order {
		b := s.saved[name]
		if b.present {
			s.reg.Set(name, b.value)
		} else {
			s.reg.Delete(name)
		}
	}
}

// Keys returns the names captured so far, in first-saved order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Contains reports whether name has already been captured.
func (s *Snapshot) Contains(name string) bool {
	_, ok := s.saved[name]
	return ok
}
