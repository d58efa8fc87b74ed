// Package store defines the entity model shared by the command engine and
// its storage backends.
//
// The production implementation lives in the redisstore sub-package; the
// memstore sub-package backs tests and the local console channel. Consumers
// depend on the Store interface rather than on a concrete type.
package store

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrNameTaken is returned when creating an entity whose name collides with
// an existing one inside the same scope.
var ErrNameTaken = errors.New("name already taken")

// ErrAccountLinked is returned when linking an account that already belongs
// to a system.
var ErrAccountLinked = errors.New("account already linked to a system")

// System is a group entity owning zero or more members and zero or more
// linked chat accounts. The HID is globally unique and immutable once
// assigned.
type System struct {
	ID       string
	HID      string
	Name     string
	Tag      string
	Accounts []uint64
	Created  time.Time
}

// Member is an individual persona belonging to exactly one system. The HID
// is globally unique; the display name is unique only by convention within
// its system.
type Member struct {
	ID        string
	HID       string
	SystemID  string
	Name      string
	AvatarURL string
	Created   time.Time
}

// Store is the contextual entity store consumed by the reference resolvers
// and command handlers. All lookups return (nil, nil) on a miss, never an
// error.
type Store interface {
	// Lookups
	SystemByAccount(ctx context.Context, accountID uint64) (*System, error)
	SystemByHID(ctx context.Context, hid string) (*System, error)
	// MemberByName matches the display name case-sensitively within one
	// system. When two members share a name the one with the lowest HID
	// wins, so repeated lookups are deterministic.
	MemberByName(ctx context.Context, systemID, name string) (*Member, error)
	MemberByHID(ctx context.Context, hid string) (*Member, error)

	// Writes
	CreateSystem(ctx context.Context, name string, accountID uint64) (*System, error)
	LinkAccount(ctx context.Context, systemID string, accountID uint64) error
	CreateMember(ctx context.Context, systemID, name string) (*Member, error)
	UpdateMember(ctx context.Context, member *Member) error

	// Listings and stats
	MembersBySystem(ctx context.Context, systemID string) ([]*Member, error)
	Counts(ctx context.Context) (systems int64, members int64, err error)

	Close() error
}

const hidAlphabet = "abcdefghijklmnopqrstuvwxyz"

// HIDLength is the length of generated short handles.
const HIDLength = 5

// NewHID generates a random short handle. Uniqueness is enforced by the
// storage backend at assignment time, not here.
func NewHID() string {
	b := make([]byte, HIDLength)
	for i := range b {
		b[i] = hidAlphabet[rand.Intn(len(hidAlphabet))]
	}
	return string(b)
}
