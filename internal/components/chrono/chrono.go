package chrono

import (
	"sync"
	"time"
	_ "time/tzdata"
)

var berlin *time.Location

func init() {
	var err error
	berlin, err = time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
}

// Berlin returns a [*time.Location] for Europe/Berlin, the civil calendar every
// date on the course site is written in.
func Berlin() *time.Location {
	return berlin
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Europe/Berlin.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(berlin)
}

// FixedTime is a TimeAPI that only moves when told to.
type FixedTime struct {
	state *fixedState
}

type fixedState struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFixedTime(now time.Time) FixedTime {
	return FixedTime{state: &fixedState{now: now}}
}

func (f FixedTime) Now() time.Time {
	f.state.mutex.Lock()
	defer f.state.mutex.Unlock()
	return f.state.now.In(berlin)
}

// Advance moves the clock forward by d.
func (f FixedTime) Advance(d time.Duration) {
	f.state.mutex.Lock()
	defer f.state.mutex.Unlock()
	f.state.now = f.state.now.Add(d)
}
