package lifecycle

import (
	"errors"
	"runtime/debug"
	"sync"

	"github.com/ugparu/remux/utils/logger"
)

type defaultManager[T Instance] struct {
	instance  T
	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

// NewDefaultManager runs the start function once and Close_ once.
func NewDefaultManager[T Instance](instance T) Manager[T] {
	return &defaultManager[T]{instance: instance, closed: make(chan struct{})}
}

func (m *defaultManager[T]) Start(start func(T) error) error {
	select {
	case <-m.closed:
		return &StartedAfterCloseError{}
	default:
	}
	var err error = &StartedAlreadyError{}
	m.startOnce.Do(func() {
		logger.Debug(m.instance, "Starting")
		err = start(m.instance)
	})
	return err
}

func (m *defaultManager[T]) Close() {
	m.closeOnce.Do(func() {
		m.instance.Close_()
		close(m.closed)
	})
}

type asyncManager[T AsyncInstance] struct {
	instance T
	// failsafe keeps the loop running through Step errors and panics.
	failsafe  bool
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewAsyncManager stops the Step loop on the first error or panic. A failed
// start function closes Done right away.
func NewAsyncManager[T AsyncInstance](instance T) AsyncManager[T] {
	return &asyncManager[T]{instance: instance, stop: make(chan struct{}), done: make(chan struct{})}
}

// NewFailSafeAsyncManager only stops the Step loop on *BreakError. Start
// errors and panics are logged, never returned.
func NewFailSafeAsyncManager[T AsyncInstance](instance T) AsyncManager[T] {
	m := &asyncManager[T]{instance: instance, stop: make(chan struct{}), done: make(chan struct{})}
	m.failsafe = true
	return m
}

func (m *asyncManager[T]) Start(start func(T) error) (err error) {
	if m.failsafe {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf(m.instance, "Panic detected! Recovering from: %v", r)
				logger.Errorf(m.instance, "%s", debug.Stack())
			}
			err = nil
		}()
	} else {
		select {
		case <-m.stop:
			return &StartedAfterCloseError{}
		default:
		}
	}
	err = &StartedAlreadyError{}
	m.startOnce.Do(func() {
		logger.Debugf(m.instance, "Starting async, failsafe %t", m.failsafe)
		if err = start(m.instance); err != nil {
			if !m.failsafe {
				close(m.done)
				return
			}
			logger.Warningf(m.instance, "Detected error on start: %s", err.Error())
		}
		go m.loop()
	})
	return err
}

func (m *asyncManager[T]) loop() {
	logger.Debug(m.instance, "Entering main loop")
	defer close(m.done)
	for m.step() {
	}
}

// step reports whether the loop goes on.
func (m *asyncManager[T]) step() (more bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(m.instance, "Panic detected! Recovering from: %v", r)
			logger.Errorf(m.instance, "%s", debug.Stack())
			more = m.failsafe
		}
	}()
	err := m.instance.Step(m.stop)
	if err == nil {
		return true
	}
	var brk *BreakError
	if errors.As(err, &brk) {
		return false
	}
	logger.Warningf(m.instance, "Detected error: %s", err.Error())
	return m.failsafe
}

func (m *asyncManager[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		m.startOnce.Do(func() {
			close(m.done)
		})
		<-m.done
		m.instance.Close_()
	})
}

func (m *asyncManager[T]) Done() <-chan struct{} {
	return m.done
}
