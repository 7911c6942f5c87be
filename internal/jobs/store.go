package jobs

import "sync"

// Store is the job registry. Reads return snapshot copies so callers never
// observe a record mid-mutation.
type Store interface {
	Put(job *Job)
	Get(id string) (Job, bool)
	Update(id string, fn func(*Job)) bool
	Delete(id string)
}

// MemoryStore is the process-local Store used in production. Records are not
// durable and vanish on restart, which is exactly the contract: downloads are
// disposable and the sweeper reclaims their files anyway.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *job
	s.jobs[job.ID] = &clone
}

func (s *MemoryStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Update applies fn to the record under the write lock. It reports whether
// the record existed.
func (s *MemoryStore) Update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}
