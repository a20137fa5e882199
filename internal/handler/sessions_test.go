package handler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insurance-desk/internal/engine"
	"insurance-desk/internal/flows"
	"insurance-desk/internal/sink"
)

type countingTracker struct {
	open map[string]int
}

func (c *countingTracker) SessionOpened(flow string) { c.open[flow]++ }
func (c *countingTracker) SessionClosed(flow string) { c.open[flow]-- }

func TestSessions_SweepClosesIdle(t *testing.T) {
	tracker := &countingTracker{open: map[string]int{}}
	s := NewSessions(tracker)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mem := sink.NewMemorySink()
	idle := s.Open(engine.New(flows.Customer, mem))
	active := s.Open(engine.New(flows.Claim, mem))
	assert.Equal(t, 1, tracker.open["customer"])

	now = now.Add(20 * time.Minute)
	_, ok := s.Get(active)
	require.True(t, ok)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, s.Sweep(30*time.Minute))

	_, ok = s.Get(idle)
	assert.False(t, ok)
	_, ok = s.Get(active)
	assert.True(t, ok)
	assert.Equal(t, 0, tracker.open["customer"])
	assert.Equal(t, 1, tracker.open["claim"])
}

func TestSessions_CloseUnknown(t *testing.T) {
	s := NewSessions(nil)
	assert.False(t, s.Close("missing"))
}

func TestSessions_SweepRacingGetKeepsTouchedSession(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	s := NewSessions(nil)
	s.now = clock
	mem := sink.NewMemorySink()

	for round := 0; round < 200; round++ {
		id := s.Open(engine.New(flows.Customer, mem))
		advance(time.Hour)

		var wg sync.WaitGroup
		wg.Add(2)
		var touched bool
		var swept int
		go func() {
			defer wg.Done()
			_, touched = s.Get(id)
		}()
		go func() {
			defer wg.Done()
			swept = s.Sweep(30 * time.Minute)
		}()
		wg.Wait()

		_, alive := s.Get(id)
		if touched {
			// Get won the lock first and refreshed the session.
			require.True(t, alive, "round %d: touched session was swept", round)
			require.Equal(t, 0, swept)
			s.Close(id)
		} else {
			require.False(t, alive)
			require.Equal(t, 1, swept)
		}
	}
	assert.Equal(t, 0, s.Len())
}
