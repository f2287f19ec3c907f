package receiver

// SeenSet records sequence ids already delivered. With window <= 0 it grows
// for the life of the process; otherwise the oldest ids are evicted first.
type SeenSet struct {
	ids    map[uint64]struct{}
	order  []uint64
	window int
}

func NewSeenSet(window int) *SeenSet {
	return &SeenSet{
		ids:    make(map[uint64]struct{}),
		window: window,
	}
}

func (s *SeenSet) Contains(seq uint64) bool {
	_, ok := s.ids[seq]
	return ok
}

// Add inserts seq and reports whether it was new.
func (s *SeenSet) Add(seq uint64) bool {
	if s.Contains(seq) {
		return false
	}
	s.ids[seq] = struct{}{}
	if s.window > 0 {
		s.order = append(s.order, seq)
		if len(s.order) > s.window {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.ids, oldest)
		}
	}
	return true
}

func (s *SeenSet) Len() int { return len(s.ids) }
