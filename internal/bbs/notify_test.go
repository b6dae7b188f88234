package bbs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flakySender fails the first n delivery attempts.
type flakySender struct {
	mu       sync.Mutex
	failures int
	attempts int
}

func (f *flakySender) SendNotification(ctx context.Context, recipient, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("handoff failed")
	}
	return nil
}

func (f *flakySender) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func TestDeliveryRetriesOnceAfterFailure(t *testing.T) {
	sender := &flakySender{failures: 1}
	d := &Dispatcher{sender: sender, retryDelay: time.Millisecond}

	d.deliver("http://example.org/bob", "New post in general", "Author: alice")
	d.Wait()
	if got := sender.attemptCount(); got != 2 {
		t.Fatalf("delivery attempts: got %d, want 2", got)
	}
}

func TestDeliveryGivesUpAfterOneRetry(t *testing.T) {
	sender := &flakySender{failures: 10}
	d := &Dispatcher{sender: sender, retryDelay: time.Millisecond}

	d.deliver("http://example.org/bob", "New post in general", "Author: alice")
	d.Wait()
	if got := sender.attemptCount(); got != 2 {
		t.Fatalf("delivery attempts: got %d, want exactly 2 before giving up", got)
	}
}

func TestDeliveryDoesNotRetryOnSuccess(t *testing.T) {
	sender := &flakySender{}
	d := &Dispatcher{sender: sender, retryDelay: time.Millisecond}

	d.deliver("http://example.org/bob", "New post in general", "Author: alice")
	d.Wait()
	if got := sender.attemptCount(); got != 1 {
		t.Fatalf("delivery attempts: got %d, want 1", got)
	}
}
