// Package app holds the application state that a front end renders: the
// selected files, the active tool, progress, the last result, and the last
// error. State is owned by a Controller and changes only through it.
package app

import (
	"context"
	"errors"
	"sync"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/task"
)

// ErrBusy is returned when an operation is started while another runs.
var ErrBusy = errors.New("an operation is already running")

// State is a snapshot of the application.
type State struct {
	Tool       task.Kind
	Files      []models.File
	Processing bool
	Progress   int
	// Err is the plain-language message of the last failure. It stays until
	// dismissed or the next operation starts.
	Err    string
	Result *task.Outcome
}

// Starter runs operations in the background.
type Starter interface {
	Start(ctx context.Context, p task.Params) <-chan task.Event
}

// Controller serialises operations and owns the State.
type Controller struct {
	runner Starter

	mu    sync.Mutex
	state State
	// onChange receives a snapshot after every change, outside the lock.
	onChange func(State)
}

// NewController returns a Controller running operations with r. onChange
// may be nil.
func NewController(r Starter, onChange func(State)) *Controller {
	return &Controller{runner: r, onChange: onChange}
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Select makes tool active with the given files and clears the previous
// result and error.
func (c *Controller) Select(tool task.Kind, files []models.File) error {
	return c.update(func(s *State) error {
		if s.Processing {
			return ErrBusy
		}
		*s = State{Tool: tool, Files: files}
		return nil
	})
}

// Execute runs p to completion, updating progress as events arrive. The
// returned error is also recorded in the state.
func (c *Controller) Execute(ctx context.Context, p task.Params) (*task.Outcome, error) {
	if err := c.update(func(s *State) error {
		if s.Processing {
			return ErrBusy
		}
		s.Tool = p.Kind()
		s.Processing = true
		s.Progress = 0
		s.Err = ""
		s.Result = nil
		return nil
	}); err != nil {
		return nil, err
	}

	var (
		out *task.Outcome
		err error
	)
	for ev := range c.runner.Start(ctx, p) {
		switch ev.Type {
		case task.EventProgress:
			c.update(func(s *State) error {
				s.Progress = ev.Percent
				return nil
			})
		case task.EventComplete:
			out = ev.Outcome
		case task.EventError:
			err = ev.Err
		}
	}
	if out == nil && err == nil {
		err = errors.New("operation ended without a result")
	}

	c.update(func(s *State) error {
		s.Processing = false
		if err != nil {
			s.Err = models.UserMessage(err)
			return nil
		}
		s.Progress = 100
		s.Result = out
		return nil
	})
	return out, err
}

// Dismiss clears the error so the tool can be used again.
func (c *Controller) Dismiss() {
	c.update(func(s *State) error {
		s.Err = ""
		s.Progress = 0
		return nil
	})
}

// Reset returns to the initial state unless an operation is running.
func (c *Controller) Reset() error {
	return c.update(func(s *State) error {
		if s.Processing {
			return ErrBusy
		}
		*s = State{}
		return nil
	})
}

func (c *Controller) update(fn func(*State) error) error {
	c.mu.Lock()
	if err := fn(&c.state); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.state
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(snap)
	}
	return nil
}
