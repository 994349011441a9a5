// Package status tracks the state of the device's cloud sync.
//
//	idle ──Begin──▶ syncing ──Succeed──▶ synced
//	                   │ ──Offline──▶ offline
//	                   └ ──Fail────▶ idle (LastError set)
//
// Begin is accepted from any state but syncing. There is no periodic retry;
// the next sync starts only when someone calls Begin again.
package status

import (
	"errors"
	"fmt"
	"sync"
)

type State string

const (
	Idle    State = "idle"
	Syncing State = "syncing"
	Synced  State = "synced"
	Offline State = "offline"
)

var ErrSyncInProgress = errors.New("sync already in progress")

// Transition is delivered to subscribers after every state change.
type Transition struct {
	From, To State
	Err      error
}

type Machine struct {
	mu      sync.Mutex
	state   State
	lastErr error
	nextID  int
	subs    map[int]func(Transition)
}

func NewMachine() *Machine {
	return &Machine{state: Idle, subs: make(map[int]func(Transition))}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError is the error of the most recent failed or offline sync, cleared
// by a successful one.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Subscribe registers fn for future transitions. Callbacks run synchronously
// on the goroutine that caused the change, outside the machine's lock.
func (m *Machine) Subscribe(fn func(Transition)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Machine) Begin() error {
	return m.move(Syncing, nil, func(from State) error {
		if from == Syncing {
			return ErrSyncInProgress
		}
		return nil
	})
}

func (m *Machine) Succeed() error {
	return m.move(Synced, nil, fromSyncing)
}

func (m *Machine) Offline(err error) error {
	return m.move(Offline, err, fromSyncing)
}

func (m *Machine) Fail(err error) error {
	return m.move(Idle, err, fromSyncing)
}

func fromSyncing(from State) error {
	if from != Syncing {
		return fmt.Errorf("no sync in progress (state %s)", from)
	}
	return nil
}

func (m *Machine) move(to State, err error, guard func(State) error) error {
	m.mu.Lock()
	from := m.state
	if gerr := guard(from); gerr != nil {
		m.mu.Unlock()
		return gerr
	}
	m.state = to
	if to != Syncing {
		m.lastErr = err
	}
	subs := make([]func(Transition), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	tr := Transition{From: from, To: to, Err: err}
	for _, fn := range subs {
		fn(tr)
	}
	return nil
}
