package audit

import "sync"

// DefaultSpoolCapacity bounds the local fallback queue
const DefaultSpoolCapacity = 100

// Spool buffers audit entries that could not reach the Audit Service.
// Bounded; when full the oldest entry is evicted first. Replay consumes
// oldest-first so server-side ordering stays as close to wall-clock as the
// outage allows.
type Spool interface {
	Append(e Entry) error
	// Oldest returns the next entry to replay without consuming it
	Oldest() (Entry, bool, error)
	// Shift drops the oldest entry after a successful replay
	Shift() error
	Len() int
	Close() error
}

// MemorySpool is the default in-process ring buffer
type MemorySpool struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	evicted  int64
}

// NewMemorySpool creates a memory spool; capacity <= 0 uses the default
func NewMemorySpool(capacity int) *MemorySpool {
	if capacity <= 0 {
		capacity = DefaultSpoolCapacity
	}
	return &MemorySpool{capacity: capacity}
}

// Append adds an entry, evicting the oldest when full
func (s *MemorySpool) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.capacity {
		drop := len(s.entries) - s.capacity + 1
		s.entries = append([]Entry(nil), s.entries[drop:]...)
		s.evicted += int64(drop)
	}
	s.entries = append(s.entries, e)
	return nil
}

// Oldest returns the next entry without consuming it
func (s *MemorySpool) Oldest() (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Entry{}, false, nil
	}
	return s.entries[0], true, nil
}

// Shift drops the oldest entry
func (s *MemorySpool) Shift() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 {
		s.entries = s.entries[1:]
	}
	return nil
}

// Len returns the number of buffered entries
func (s *MemorySpool) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evicted returns how many entries were dropped to stay within capacity
func (s *MemorySpool) Evicted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// Close is a no-op for the memory spool
func (s *MemorySpool) Close() error {
	return nil
}
