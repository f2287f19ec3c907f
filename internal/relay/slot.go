package relay

import (
	"net/netip"
	"sync"
)

// ClientSlot holds the single return-path endpoint.
type ClientSlot struct {
	mu      sync.RWMutex
	addr    netip.AddrPort
	set     bool
	changes uint64
}

// Store records addr and reports whether it replaced a different endpoint.
func (s *ClientSlot) Store(addr netip.AddrPort) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && s.addr == addr {
		return false
	}
	replaced := s.set
	s.addr = addr
	s.set = true
	s.changes++
	return replaced
}

func (s *ClientSlot) Load() (netip.AddrPort, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr, s.set
}

// Changes counts distinct endpoints stored over time.
func (s *ClientSlot) Changes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changes
}
