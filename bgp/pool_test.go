package bgp

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolOneChildPerPeer(t *testing.T) {
	p1, ln1 := testPeer(t, 0)
	defer ln1.Close()

	p2, ln2 := testPeer(t, 0)
	defer ln2.Close()

	p1.LocalAddress = IP4{127, 0, 0, 1}

	pool := NewPool([]Peer{p1, p2}, zerolog.Nop())
	defer pool.Close()

	status := pool.Status()
	require.Len(t, status, 2)
	require.Contains(t, status, "127.0.0.1")
	require.Contains(t, status, "0.0.0.0")

	require.Eventually(t, func() bool {
		return pool.Status()["127.0.0.1"].Attempts >= 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPoolDuplicateLocalAddress(t *testing.T) {
	p1, ln1 := testPeer(t, 0)
	defer ln1.Close()

	p2, ln2 := testPeer(t, 0)
	defer ln2.Close()

	// same (zero) bind address: the second child gets a qualified key
	// rather than clobbering the first
	pool := NewPool([]Peer{p1, p2}, zerolog.Nop())
	defer pool.Close()

	require.Len(t, pool.Status(), 2)
}

func TestPoolCloseStopsChildren(t *testing.T) {
	p, ln := testPeer(t, 0)
	defer ln.Close()

	pool := NewPool([]Peer{p}, zerolog.Nop())

	done := make(chan bool)
	go func() {
		defer close(done)
		pool.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not shut down")
	}

	// idempotent
	pool.Close()
}

func TestRunChildRecoversPanic(t *testing.T) {
	err := runChild(func() error {
		panic("boom")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	require.NoError(t, runChild(func() error { return nil }))

	sentinel := errors.New("abnormal")
	require.ErrorIs(t, runChild(func() error { return sentinel }), sentinel)
}

func TestSupervisorRestartsAbnormalChild(t *testing.T) {
	// a child that panics once then exits cleanly is run exactly twice:
	// restarted after the abnormal exit, left alone after the clean one
	pool := &Pool{log: zerolog.Nop()}

	calls := 0
	run := func() error {
		calls++
		if calls == 1 {
			panic("first run dies")
		}
		return nil
	}

	pool.wg.Add(1)
	go pool.supervise("test", run)
	pool.wg.Wait()

	require.Equal(t, 2, calls)
}
