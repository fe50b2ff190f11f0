package rig

import (
	"fmt"
	"sync"
)

// CommandKind identifies a queued operation.
type CommandKind int

// Command kinds.
const (
	CmdConnect CommandKind = iota + 1
	CmdDisconnect
	CmdSetPTT
	CmdSetFrequency
	CmdSetMode
	CmdRefreshFreqMode
	cmdTeardown
)

var commandNames = map[CommandKind]string{
	CmdConnect:         "connect",
	CmdDisconnect:      "disconnect",
	CmdSetPTT:          "set_ptt",
	CmdSetFrequency:    "set_frequency",
	CmdSetMode:         "set_mode",
	CmdRefreshFreqMode: "refresh_freq_mode",
	cmdTeardown:        "teardown",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one queued operation. Only the field matching Kind is used.
type Command struct {
	Kind      CommandKind
	Frequency uint64
	Mode      Mode
	PTT       bool
}

// params renders the command arguments for the audit trail.
func (cmd Command) params() map[string]any {
	switch cmd.Kind {
	case CmdSetFrequency:
		return map[string]any{"hz": cmd.Frequency}
	case CmdSetMode:
		return map[string]any{"mode": cmd.Mode.String()}
	case CmdSetPTT:
		return map[string]any{"on": cmd.PTT}
	default:
		return nil
	}
}

// executor runs commands in FIFO order on a single worker goroutine.
// enqueue never blocks: the queue is an unbounded slice.
type executor struct {
	run   func(Command)
	depth func(int)

	mu       sync.Mutex
	queue    []Command
	stopping bool
	wake     chan struct{}
	done     chan struct{}
}

func newExecutor(run func(Command), depth func(int)) *executor {
	e := &executor{
		run:   run,
		depth: depth,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go e.worker()
	return e
}

// enqueue appends cmd. It reports false once stop has been called.
func (e *executor) enqueue(cmd Command) bool {
	e.mu.Lock()
	if e.stopping {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, cmd)
	e.depth(len(e.queue))
	e.mu.Unlock()

	e.signal()
	return true
}

// stop rejects further commands, lets the worker drain the queue and waits
// for it to exit.
func (e *executor) stop() {
	e.halt(nil)
}

// stopWith is stop with last queued as the final command. Queuing last and
// rejecting later commands happen under one lock, so nothing can run after it.
func (e *executor) stopWith(last Command) {
	e.halt(&last)
}

func (e *executor) halt(last *Command) {
	e.mu.Lock()
	if last != nil && !e.stopping {
		e.queue = append(e.queue, *last)
		e.depth(len(e.queue))
	}
	e.stopping = true
	e.mu.Unlock()
	e.signal()
	<-e.done
}

func (e *executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *executor) worker() {
	defer close(e.done)
	for {
		cmd, ok := e.next()
		if !ok {
			return
		}
		e.run(cmd)
	}
}

// next blocks until a command is available. It returns false when the queue
// is empty and the executor is stopping.
func (e *executor) next() (Command, bool) {
	e.mu.Lock()
	for len(e.queue) == 0 {
		if e.stopping {
			e.mu.Unlock()
			return Command{}, false
		}
		e.mu.Unlock()
		<-e.wake
		e.mu.Lock()
	}
	cmd := e.queue[0]
	e.queue[0] = Command{}
	e.queue = e.queue[1:]
	e.depth(len(e.queue))
	e.mu.Unlock()

	return cmd, true
}
