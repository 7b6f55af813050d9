package archive

// stage holds entry writes and deletions until the archive is flushed.
type stage struct {
	files   map[string][]byte
	order   []string
	deleted map[string]bool
}

func newStage() *stage {
	return &stage{
		files:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

func (s *stage) put(name string, data []byte) {
	if _, ok := s.files[name]; !ok {
		s.order = append(s.order, name)
	}
	s.files[name] = append([]byte(nil), data...)
	delete(s.deleted, name)
}

func (s *stage) remove(name string) {
	if _, ok := s.files[name]; ok {
		delete(s.files, name)
		for i, n := range s.order {
			if n == name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.deleted[name] = true
}

func (s *stage) get(name string) ([]byte, bool) {
	data, ok := s.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

func (s *stage) isDeleted(name string) bool {
	return s.deleted[name]
}

func (s *stage) dirty() bool {
	return len(s.files) > 0 || len(s.deleted) > 0
}

// added returns staged names that are not part of the original listing.
func (s *stage) added(existing func(string) bool) []string {
	var out []string
	for _, name := range s.order {
		if !existing(name) {
			out = append(out, name)
		}
	}
	return out
}

// merge returns the effective listing: original order minus deletions,
// followed by new entries.
func (s *stage) merge(original []string, existing func(string) bool) []string {
	out := make([]string, 0, len(original)+len(s.order))
	for _, name := range original {
		if !s.deleted[name] {
			out = append(out, name)
		}
	}
	return append(out, s.added(existing)...)
}
