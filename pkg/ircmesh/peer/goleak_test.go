package peer_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain wraps every test in this package with a goroutine-leak check, the
// same way go-mcast's fuzzy tests deferred goleak.VerifyNone around cluster
// shutdown. PingMonitor and Manager both own background goroutines (timers,
// stream readers), so a test that forgets to Stop one would otherwise pass
// silently.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
