package domain

import (
	"strconv"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID returns an entity id derived from the wall clock: the decimal string
// of the current Unix millisecond, bumped past the previous value so two
// serialized calls within the same millisecond never collide.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return strconv.FormatInt(now, 10)
}

// Now returns the current UTC time in the stored timestamp format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
