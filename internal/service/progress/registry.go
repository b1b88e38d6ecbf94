package progress

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const shardCount = 16

var ErrRegistryFull = errors.New("job registry is full")

// IDGenerator mints job identifiers.
type IDGenerator func() string

// RegistryOption configures Registry.
type RegistryOption func(*Registry)

// WithIDGenerator replaces the default UUIDv4 generator.
func WithIDGenerator(gen IDGenerator) RegistryOption {
	return func(r *Registry) {
		if gen != nil {
			r.gen = gen
		}
	}
}

// WithMaxJobs bounds the number of live entries. Zero means unbounded.
func WithMaxJobs(n int) RegistryOption {
	return func(r *Registry) {
		r.maxJobs = int64(n)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

type shard struct {
	mu   sync.RWMutex
	jobs map[string]*Channel
}

// Registry maps job ids to their channels. Entries live in fixed shards so
// work on one job never waits on a lock held for an unrelated job.
type Registry struct {
	shards  [shardCount]shard
	size    atomic.Int64
	maxJobs int64
	gen     IDGenerator
	now     func() time.Time
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		gen: uuid.NewString,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.shards {
		r.shards[i].jobs = make(map[string]*Channel)
	}
	return r
}

func (r *Registry) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.shards[h.Sum32()%shardCount]
}

// Create mints a fresh id and registers an empty channel under it.
func (r *Registry) Create() (string, *Channel, error) {
	if n := r.size.Add(1); r.maxJobs > 0 && n > r.maxJobs {
		r.size.Add(-1)
		return "", nil, ErrRegistryFull
	}

	for attempt := 0; attempt < 5; attempt++ {
		id := r.gen()
		if id == "" {
			continue
		}
		s := r.shardFor(id)
		s.mu.Lock()
		if _, taken := s.jobs[id]; !taken {
			ch := newChannel(r.now)
			s.jobs[id] = ch
			s.mu.Unlock()
			return id, ch, nil
		}
		s.mu.Unlock()
	}
	r.size.Add(-1)
	return "", nil, fmt.Errorf("could not mint a unique job id")
}

// Lookup returns the channel registered under id.
func (r *Registry) Lookup(id string) (*Channel, bool) {
	s := r.shardFor(id)
	s.mu.RLock()
	ch, ok := s.jobs[id]
	s.mu.RUnlock()
	return ch, ok
}

// Claim returns the channel under id for exclusive consumption. A second
// claim on the same id fails as if the id were unknown.
func (r *Registry) Claim(id string) (*Channel, bool) {
	ch, ok := r.Lookup(id)
	if !ok || !ch.claim() {
		return nil, false
	}
	return ch, true
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	_, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()
	if ok {
		r.size.Add(-1)
	}
	return ok
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// Sweep removes entries whose terminal event was published but which have
// not been touched for longer than retention. It returns the removed ids.
func (r *Registry) Sweep(retention time.Duration) []string {
	cutoff := r.now().Add(-retention)
	var removed []string
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for id, ch := range s.jobs {
			if ch.Sealed() && ch.idleSince().Before(cutoff) {
				delete(s.jobs, id)
				removed = append(removed, id)
			}
		}
		s.mu.Unlock()
	}
	if len(removed) > 0 {
		r.size.Add(-int64(len(removed)))
	}
	return removed
}
