package wolo

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

var ErrUnknownController = errors.New("unknown controller")

// Activation is one entry into a state: the controller instance lives as
// long as the activation does.
type Activation struct {
	ID         uuid.UUID
	State      State
	Params     Params
	Controller Controller
}

type Navigator struct {
	states      *StateTable
	controllers map[string]ControllerFactory
	current     atomic.Pointer[Activation]
}

func NewNavigator(states *StateTable, controllers map[string]ControllerFactory) *Navigator {
	return &Navigator{states: states, controllers: controllers}
}

func (n *Navigator) States() *StateTable {
	return n.states
}

// Current returns the active activation, nil before the first navigation.
func (n *Navigator) Current() *Activation {
	return n.current.Load()
}

// Navigate resolves rawURL, activates the controller of the matched state and
// makes it current. Unmatched urls activate the fallback state.
func (n *Navigator) Navigate(ctx context.Context, rawURL string) (*Activation, error) {
	m := n.states.Resolve(rawURL)
	if m.Fallback {
		log.Println("no state for", rawURL, "falling back to", m.State.Name)
	}
	return n.activate(ctx, m.State, m.Params)
}

// Go navigates to a named state.
func (n *Navigator) Go(ctx context.Context, name string, params Params) (*Activation, error) {
	s, ok := n.states.Get(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownState)
	}
	if params == nil {
		params = Params{}
	}
	return n.activate(ctx, s, params)
}

func (n *Navigator) activate(ctx context.Context, s State, params Params) (*Activation, error) {
	factory, ok := n.controllers[s.Controller]
	if !ok {
		return nil, fmt.Errorf("state %s: %s: %w", s.Name, s.Controller, ErrUnknownController)
	}
	a := &Activation{
		ID:         uuid.New(),
		State:      s,
		Params:     params,
		Controller: factory(n),
	}
	log.Println("activating", s.Name, s.Controller, params, a.ID)
	err := a.Controller.Activate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("state %s: %w", s.Name, err)
	}
	n.current.Store(a)
	return a, nil
}
