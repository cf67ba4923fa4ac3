// Package service exposes the post-processing algorithms over HTTP. Jobs
// run on a fixed pool of workers.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/postprocess"
	"github.com/ugparu/remux/utils/lifecycle"
	"github.com/ugparu/remux/utils/logger"
	"github.com/ugparu/remux/utils/stream"
)

// Job converts the files at Sources into Output.
type Job struct {
	Algorithm string
	Args      []string
	Sources   []string
	Output    string

	done chan Result
}

type Result struct {
	// Processed is false when the sources needed no work and Output is
	// empty.
	Processed bool
	Err       error
}

// Run opens the files of j and runs its algorithm.
func (j *Job) Run() (processed bool, err error) {
	a, err := postprocess.Get(j.Algorithm, j.Args...)
	if err != nil {
		return false, err
	}
	sources := make([]remux.Stream, 0, len(j.Sources))
	for _, path := range j.Sources {
		s, err := stream.Open(path)
		if err != nil {
			for _, opened := range sources {
				opened.Close()
			}
			return false, err
		}
		sources = append(sources, s)
	}
	out, err := stream.Create(j.Output)
	if err != nil {
		for _, s := range sources {
			s.Close()
		}
		return false, err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()
	return postprocess.Run(a, out, sources...)
}

// worker takes jobs off the shared queue, one per Step.
type worker struct {
	id   int
	jobs <-chan *Job
}

func (w *worker) String() string {
	return fmt.Sprintf("WORKER_%d", w.id)
}

func (w *worker) Close_() {}

func (w *worker) Step(stop <-chan struct{}) error {
	select {
	case <-stop:
		return &lifecycle.BreakError{}
	case j := <-w.jobs:
		logger.Debugf(w, "%s over %d source(s)", j.Algorithm, len(j.Sources))
		processed, err := j.Run()
		j.done <- Result{Processed: processed, Err: err}
		return err
	}
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	jobs     chan *Job
	managers []lifecycle.AsyncManager[*worker]
}

func NewPool(workers int) *Pool {
	p := &Pool{jobs: make(chan *Job)}
	for i := 0; i < workers; i++ {
		w := &worker{id: i, jobs: p.jobs}
		p.managers = append(p.managers, lifecycle.NewFailSafeAsyncManager(w))
	}
	return p
}

func (p *Pool) String() string {
	return "POOL"
}

func (p *Pool) Start() {
	for _, m := range p.managers {
		_ = m.Start(func(*worker) error { return nil })
	}
	logger.Infof(p, "%d workers started", len(p.managers))
}

// Submit queues j and waits for its result. When ctx ends first the job
// may still run to completion.
func (p *Pool) Submit(ctx context.Context, j *Job) (Result, error) {
	j.done = make(chan Result, 1)
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case r := <-j.done:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (p *Pool) Close() {
	for _, m := range p.managers {
		m.Close()
	}
}
