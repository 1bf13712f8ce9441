package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryGuardAcceptsFirstEvent(t *testing.T) {
	guard := NewMemoryGuard(30*time.Second, 5*time.Minute)

	assert.True(t, guard.Accept("payment_failed", "u1"))
}

func TestMemoryGuardSuppressesDuplicateWithinWindow(t *testing.T) {
	guard := NewMemoryGuard(30*time.Second, 5*time.Minute)

	assert.True(t, guard.Accept("payment_failed", "u1"))
	assert.False(t, guard.Accept("payment_failed", "u1"))
	assert.False(t, guard.Accept("payment_failed", "u1"))
}

func TestMemoryGuardKeysByTypeAndUser(t *testing.T) {
	guard := NewMemoryGuard(30*time.Second, 5*time.Minute)

	assert.True(t, guard.Accept("payment_failed", "u1"))
	assert.True(t, guard.Accept("payment_failed", "u2"))
	assert.True(t, guard.Accept("trial_ending", "u1"))
}

func TestMemoryGuardAcceptsAgainAfterWindow(t *testing.T) {
	guard := NewMemoryGuard(50*time.Millisecond, time.Minute)

	assert.True(t, guard.Accept("user_created", "u1"))
	assert.False(t, guard.Accept("user_created", "u1"))

	time.Sleep(80 * time.Millisecond)

	assert.True(t, guard.Accept("user_created", "u1"))
}

func TestMemoryGuardRejectDoesNotExtendWindow(t *testing.T) {
	guard := NewMemoryGuard(100*time.Millisecond, time.Minute)

	assert.True(t, guard.Accept("trial_ending", "u1"))

	// Hammer with duplicates through most of the window; the original
	// timestamp must still expire on schedule.
	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		assert.False(t, guard.Accept("trial_ending", "u1"))
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)
	assert.True(t, guard.Accept("trial_ending", "u1"))
}

func TestMemoryGuardConcurrentAccessOneWinner(t *testing.T) {
	guard := NewMemoryGuard(30*time.Second, 5*time.Minute)

	const callers = 50
	var wg sync.WaitGroup
	accepted := make(chan struct{}, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.Accept("subscription_started", "u1") {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	assert.Equal(t, 1, len(accepted), "exactly one concurrent caller should win")
}

func TestMemoryGuardManyUsersIndependent(t *testing.T) {
	guard := NewMemoryGuard(30*time.Second, 5*time.Minute)

	for i := 0; i < 100; i++ {
		assert.True(t, guard.Accept("user_created", fmt.Sprintf("u%d", i)))
	}
}
