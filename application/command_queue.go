package application

import (
	"sync"
	"sync/atomic"
)

type PendingCommand struct {
	DeviceURL string
	Ordinal   int
	Command   Command
}

// CommandQueue is an unbounded FIFO shared between the bus listener
// (producer) and the sync loop (consumer).
type CommandQueue struct {
	mu    sync.Mutex
	items []PendingCommand
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

func (q *CommandQueue) Push(cmd PendingCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, cmd)
}

// Pop removes and returns the oldest command.
func (q *CommandQueue) Pop() (PendingCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return PendingCommand{}, false
	}

	cmd := q.items[0]
	q.items[0] = PendingCommand{}
	q.items = q.items[1:]
	return cmd, true
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// RefreshFlag records that a full state refresh is due.
type RefreshFlag struct {
	due atomic.Bool
}

func (f *RefreshFlag) Set() {
	f.due.Store(true)
}

func (f *RefreshFlag) IsSet() bool {
	return f.due.Load()
}

// Take clears the flag and reports whether it was set.
func (f *RefreshFlag) Take() bool {
	return f.due.Swap(false)
}
