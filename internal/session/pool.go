package session

import (
	"hash/fnv"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/assert"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
)

// Pool is a fixed set of independent sessions. Work items are routed to a
// session by a hash of their key, so the same item always lands on the same
// session and no session is shared by unrelated streams of work.
type Pool struct {
	stores []*Store
}

func NewPool(size int, idleTimeout time.Duration, clock chrono.TimeAPI, tel telemetry.API) Pool {
	assert.Positive(size)

	stores := make([]*Store, size)
	for i := range stores {
		stores[i] = NewStore(idleTimeout, clock, tel)
	}
	return Pool{stores: stores}
}

// Index returns the position of the session that key is routed to.
func (p Pool) Index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.stores)))
}

// Pick returns the session that key is routed to.
func (p Pool) Pick(key string) *Store {
	return p.stores[p.Index(key)]
}

func (p Pool) Size() int {
	return len(p.stores)
}

// Reset clears every session in the pool.
func (p Pool) Reset() {
	for _, s := range p.stores {
		s.Reset()
	}
}
