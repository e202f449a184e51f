package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	var forwarded []Event
	c := NewCollector(HandlerFunc(func(e Event) {
		forwarded = append(forwarded, e)
	}))

	c.Handle(Event{Level: Debug, Stage: "load", Message: "reading"})
	c.Handle(Event{Level: Warn, Stage: "commit", Message: "unchanged", Path: "go.mod"})
	c.Handle(Event{Level: Error, Stage: "commit", Message: "write failed", Error: errors.New("disk full")})

	assert.Len(t, forwarded, 3)
	assert.Equal(t, Error, c.MaxLevel())
	assert.Len(t, c.AtLevel(Warn), 2)

	s := c.Summary()
	assert.Len(t, s.Errors, 1)
	assert.Len(t, s.Warnings, 1)
	assert.Equal(t, "Errors (1):\n- commit: write failed (disk full)\nWarnings (1):\n- commit: go.mod: unchanged", s.String())

	c.Clear()
	assert.Empty(t, c.Events())
	assert.Equal(t, Debug, c.MaxLevel())
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector(nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Handle(Event{Level: Info})
		}()
	}
	wg.Wait()

	assert.Len(t, c.Events(), 50)
}
