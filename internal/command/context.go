package command

import (
	"fmt"

	"github.com/pluralhub/plural-gateway/internal/store"
)

// EntityKind tags the context entity slot.
type EntityKind int

const (
	EntityNone EntityKind = iota
	EntitySystem
	EntityMember
)

// Context carries the state of a single command invocation: the invoking
// account, the invoker's own system (nil when the account is unregistered),
// and the context entity slot filled by the contextual dispatcher.
//
// One Context exists per invocation and is never shared across goroutines,
// so no locking is needed. The entity slot is set at most once; that
// guarantee is enforced by the dispatcher's re-entry guard, not here.
type Context struct {
	Account uint64
	Channel string
	Sender  *store.System

	reply func(string) error

	entityKind EntityKind
	system     *store.System
	member     *store.Member
}

// NewContext creates a Context for one invocation. reply delivers a message
// back to the invoking channel.
func NewContext(account uint64, sender *store.System, reply func(string) error) *Context {
	if reply == nil {
		reply = func(string) error { return nil }
	}
	return &Context{
		Account: account,
		Sender:  sender,
		reply:   reply,
	}
}

// Reply sends a formatted message back to the invoker.
func (c *Context) Reply(format string, args ...interface{}) error {
	return c.reply(fmt.Sprintf(format, args...))
}

// ContextBound reports whether the entity slot has been filled.
func (c *Context) ContextBound() bool {
	return c.entityKind != EntityNone
}

// SetContextSystem overwrites the entity slot with a system.
func (c *Context) SetContextSystem(sys *store.System) {
	c.entityKind = EntitySystem
	c.system = sys
	c.member = nil
}

// SetContextMember overwrites the entity slot with a member.
func (c *Context) SetContextMember(mem *store.Member) {
	c.entityKind = EntityMember
	c.member = mem
	c.system = nil
}

// SystemContext returns the bound system, if the slot holds one.
func (c *Context) SystemContext() (*store.System, bool) {
	if c.entityKind != EntitySystem {
		return nil, false
	}
	return c.system, true
}

// MemberContext returns the bound member, if the slot holds one.
func (c *Context) MemberContext() (*store.Member, bool) {
	if c.entityKind != EntityMember {
		return nil, false
	}
	return c.member, true
}
