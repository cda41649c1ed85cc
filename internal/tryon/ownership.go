package tryon

import (
	"errors"
	"sync"
	"time"
)

// ErrQueueLimit indicates the client already has the maximum number of
// concurrent jobs outstanding.
var ErrQueueLimit = errors.New("too many pending try-ons, wait for existing jobs to finish")

type ownership struct {
	owner     string
	expiresAt time.Time
}

// Tracker bounds how many concurrent try-on jobs a single client may have
// outstanding. Entries expire after a TTL as a safety net against jobs whose
// completion is never observed. State is in-memory and per-instance.
type Tracker struct {
	max int
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	active map[string]map[string]struct{}
	owners map[string]ownership
}

// NewTracker builds a tracker allowing max concurrent jobs per client, each
// reclaimed after ttl if never released.
func NewTracker(max int, ttl time.Duration) *Tracker {
	return &Tracker{
		max:    max,
		ttl:    ttl,
		now:    time.Now,
		active: make(map[string]map[string]struct{}),
		owners: make(map[string]ownership),
	}
}

// EnsureCapacity fails with ErrQueueLimit when the client's active set is
// full. Expired entries are swept first so abandoned jobs free their slots.
func (t *Tracker) EnsureCapacity(clientKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked()

	if set := t.active[clientKey]; len(set) >= t.max {
		return ErrQueueLimit
	}
	return nil
}

// Sweep reclaims expired ownership entries. Submission sweeps implicitly via
// EnsureCapacity; polling paths call this so abandoned jobs free their slots
// even when a client only ever reads status.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
}

// Register records jobID as owned by clientKey.
func (t *Tracker) Register(clientKey, jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.active[clientKey]
	if !ok {
		set = make(map[string]struct{})
		t.active[clientKey] = set
	}
	set[jobID] = struct{}{}
	t.owners[jobID] = ownership{owner: clientKey, expiresAt: t.now().Add(t.ttl)}
}

// Release drops the ownership entry and the client-set membership for jobID.
// Invoked once a status poll observes completion.
func (t *Tracker) Release(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked(jobID)
}

// ActiveCount reports how many jobs clientKey currently has outstanding.
func (t *Tracker) ActiveCount(clientKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active[clientKey])
}

func (t *Tracker) releaseLocked(jobID string) {
	own, ok := t.owners[jobID]
	if !ok {
		return
	}
	delete(t.owners, jobID)
	if set, ok := t.active[own.owner]; ok {
		delete(set, jobID)
		if len(set) == 0 {
			delete(t.active, own.owner)
		}
	}
}

func (t *Tracker) sweepLocked() {
	now := t.now()
	for jobID, own := range t.owners {
		if !own.expiresAt.After(now) {
			t.releaseLocked(jobID)
		}
	}
}
