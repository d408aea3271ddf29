package dnsval

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Trace correlates every log line and cache write a single validation job
// produces, including the findKey sub-queries it issues along the way.
type Trace struct {
	Id    uuid.UUID
	Start time.Time

	FindKeySteps atomic.Uint32
}

func NewTrace() *Trace {
	return newTraceWithStart(time.Now())
}

func newTraceWithStart(start time.Time) *Trace {
	id, _ := uuid.NewV7()
	return &Trace{Id: id, Start: start}
}

func (t *Trace) ID() string {
	return t.Id.String()
}

func (t *Trace) ShortID() string {
	// The last 7 characters are unique enough for log correlation in practice.
	return t.ID()[29:]
}

func (t *Trace) Steps() uint32 {
	return t.FindKeySteps.Load()
}
