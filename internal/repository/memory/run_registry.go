package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// RunRegistry tracks pipeline runs executing in this process so a cancel
// request can reach the worker goroutine directly. Entries expire as a
// safety net in case a crash path skips Unregister.
type RunRegistry struct {
	cache *gocache.Cache
}

type runHandle struct {
	cancel context.CancelFunc
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{
		cache: gocache.New(24*time.Hour, 30*time.Minute),
	}
}

func (r *RunRegistry) Register(runId uuid.UUID, cancel context.CancelFunc) {
	r.cache.Set(runId.String(), &runHandle{cancel: cancel}, gocache.DefaultExpiration)
}

func (r *RunRegistry) Unregister(runId uuid.UUID) {
	r.cache.Delete(runId.String())
}

// Cancel fires the run's cancel func if the run executes here. Returns
// false when the run is unknown to this process.
func (r *RunRegistry) Cancel(runId uuid.UUID) bool {
	v, found := r.cache.Get(runId.String())
	if !found {
		return false
	}
	handle, ok := v.(*runHandle)
	if !ok {
		return false
	}
	handle.cancel()
	return true
}

func (r *RunRegistry) IsActive(runId uuid.UUID) bool {
	_, found := r.cache.Get(runId.String())
	return found
}
