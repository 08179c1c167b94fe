package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventNotifyOnce(t *testing.T) {
	e := NewEvent()
	assert.False(t, e.HasBeenNotified())

	done := make(chan bool)
	go func() {
		e.Wait()
		done <- true
	}()

	e.Notify()
	e.Notify()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
	assert.True(t, e.HasBeenNotified())
}

func TestEventDone(t *testing.T) {
	e := NewEvent()
	select {
	case <-e.Done():
		t.Fatal("fired before Notify")
	default:
	}
	e.Notify()
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
}
