package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.FatalLevel)
	m.Run()
}

type idle struct{ closed int }

func (i *idle) Close_() { i.closed++ }

func (*idle) String() string { return "IDLE" }

func (*idle) Step(stop <-chan struct{}) error {
	select {
	case <-stop:
		return &BreakError{}
	default:
		return nil
	}
}

type failing struct{ idle }

func (*failing) Step(stop <-chan struct{}) error {
	select {
	case <-stop:
		return &BreakError{}
	default:
		return errors.New("step failed")
	}
}

type panicking struct{ idle }

func (*panicking) Step(stop <-chan struct{}) error {
	select {
	case <-stop:
		return &BreakError{}
	default:
		panic("step panicked")
	}
}

func ok[T any](T) error { return nil }

func fail[T any](T) error { return errors.New("start failed") }

func TestDefaultManager(t *testing.T) {
	t.Parallel()

	inst := &idle{}
	m := NewDefaultManager(inst)
	require.Error(t, NewDefaultManager(&idle{}).Start(fail[*idle]))
	require.NoError(t, m.Start(ok[*idle]))

	var already *StartedAlreadyError
	require.ErrorAs(t, m.Start(ok[*idle]), &already)

	m.Close()
	m.Close()
	require.Equal(t, 1, inst.closed)
	var afterClose *StartedAfterCloseError
	require.ErrorAs(t, m.Start(ok[*idle]), &afterClose)
}

func TestAsyncManagerStart(t *testing.T) {
	t.Parallel()

	m := NewAsyncManager(&idle{})
	require.NoError(t, m.Start(ok[*idle]))
	var already *StartedAlreadyError
	require.ErrorAs(t, m.Start(ok[*idle]), &already)
	m.Close()
	<-m.Done()

	var afterClose *StartedAfterCloseError
	require.ErrorAs(t, m.Start(ok[*idle]), &afterClose)
}

func TestAsyncManagerStartError(t *testing.T) {
	t.Parallel()

	m := NewAsyncManager(&idle{})
	require.Error(t, m.Start(fail[*idle]))
	select {
	case <-m.Done():
	default:
		t.FailNow()
	}
}

func TestAsyncManagerCloseBeforeStart(t *testing.T) {
	t.Parallel()

	inst := &idle{}
	m := NewAsyncManager(inst)
	m.Close()
	<-m.Done()
	require.Equal(t, 1, inst.closed)
}

func waitDone(t *testing.T, done <-chan struct{}, want bool) {
	t.Helper()
	select {
	case <-done:
		require.True(t, want, "loop stopped")
	case <-time.After(200 * time.Millisecond):
		require.False(t, want, "loop still running")
	}
}

func TestAsyncManagerStopsOnError(t *testing.T) {
	t.Parallel()

	m := NewAsyncManager(&failing{})
	require.NoError(t, m.Start(ok[*failing]))
	waitDone(t, m.Done(), true)

	p := NewAsyncManager(&panicking{})
	require.NoError(t, p.Start(ok[*panicking]))
	waitDone(t, p.Done(), true)
}

func TestFailSafeManager(t *testing.T) {
	t.Parallel()

	m := NewFailSafeAsyncManager(&failing{})
	require.NoError(t, m.Start(fail[*failing]))
	require.NoError(t, m.Start(ok[*failing]))
	waitDone(t, m.Done(), false)
	m.Close()
	waitDone(t, m.Done(), true)

	p := NewFailSafeAsyncManager(&panicking{})
	require.NoError(t, p.Start(ok[*panicking]))
	waitDone(t, p.Done(), false)
	p.Close()
}

func TestFailSafeStartAfterClose(t *testing.T) {
	t.Parallel()

	m := NewFailSafeAsyncManager(&idle{})
	m.Close()
	require.NoError(t, m.Start(ok[*idle]))
}
