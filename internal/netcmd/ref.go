package netcmd

import "sync/atomic"

// refCount is shared by every CommandRef pointing at the same command.
type refCount struct {
	n      atomic.Int32
	onFree func(*Command)
}

// CommandRef is a command plus the relay mask for one transmission.
//
// The command payload is shared: WithRelay and Retain add owners, Release
// drops one. The count starts at 1 and the release hook runs exactly once,
// when it reaches 0. The command must not be mutated after the first ref is
// handed to a packet.
type CommandRef struct {
	cmd   *Command
	relay uint8
	rc    *refCount
}

// NewCommandRef wraps cmd with a reference count of 1.
func NewCommandRef(cmd *Command, relay uint8) *CommandRef {
	return NewCommandRefWithRelease(cmd, relay, nil)
}

// NewCommandRefWithRelease is NewCommandRef with a hook invoked once the
// last owner releases the command.
func NewCommandRefWithRelease(cmd *Command, relay uint8, onFree func(*Command)) *CommandRef {
	rc := &refCount{onFree: onFree}
	rc.n.Store(1)
	return &CommandRef{cmd: cmd, relay: relay, rc: rc}
}

// Command returns the referenced command.
func (r *CommandRef) Command() *Command {
	return r.cmd
}

// Relay returns the destination mask of this transmission.
func (r *CommandRef) Relay() uint8 {
	return r.relay
}

// RefCount returns the number of live owners of the command.
func (r *CommandRef) RefCount() int32 {
	return r.rc.n.Load()
}

// Retain adds an owner and returns r for chaining.
func (r *CommandRef) Retain() *CommandRef {
	if r.rc.n.Add(1) <= 1 {
		panic("netcmd: Retain on a released CommandRef")
	}
	return r
}

// WithRelay returns a new ref to the same command with a different relay
// mask. It counts as an additional owner.
func (r *CommandRef) WithRelay(relay uint8) *CommandRef {
	r.Retain()
	return &CommandRef{cmd: r.cmd, relay: relay, rc: r.rc}
}

// Release drops one owner. Releasing more times than retained panics.
func (r *CommandRef) Release() {
	n := r.rc.n.Add(-1)
	switch {
	case n == 0:
		if r.rc.onFree != nil {
			r.rc.onFree(r.cmd)
		}
	case n < 0:
		panic("netcmd: CommandRef released more times than retained")
	}
}
