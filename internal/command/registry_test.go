package command

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluralhub/plural-gateway/internal/messaging"
	"github.com/pluralhub/plural-gateway/internal/store"
	"github.com/pluralhub/plural-gateway/internal/store/memstore"
)

// newTestRegistry builds a registry with the full command surface over an
// in-memory store. The avatar prober is disabled so no HTTP runs.
func newTestRegistry(st store.Store) *Registry {
	r := NewRegistry(nil)
	RegisterSystemCommands(r, st, &SystemResolver{Store: st})
	RegisterMemberCommands(r, st, &MemberResolver{Store: st}, nil)
	RegisterHelpCommand(r, "pl;")
	return r
}

// invoke runs one command line as the given account and returns the replies
// it produced, along with the Context for inspection.
func invoke(t *testing.T, r *Registry, st store.Store, account uint64, text string) ([]string, *Context) {
	t.Helper()
	ctx := context.Background()
	sender, err := st.SystemByAccount(ctx, account)
	require.NoError(t, err)

	var replies []string
	cc := NewContext(account, sender, func(s string) error {
		replies = append(replies, s)
		return nil
	})
	require.NoError(t, r.Dispatch(ctx, cc, text))
	return replies, cc
}

func TestDispatchUnknownGroup(t *testing.T) {
	st := memstore.New()
	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "frobnicate")
	require.Len(t, replies, 1)
	assert.Equal(t, UnknownCommandMessage, replies[0])
}

func TestDispatchEmptyLine(t *testing.T) {
	st := memstore.New()
	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "   ")
	require.Len(t, replies, 1)
	assert.Equal(t, UnknownCommandMessage, replies[0])
}

func TestSystemNewAndShow(t *testing.T) {
	st := memstore.New()
	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "system")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "don't have a system")

	replies, _ = invoke(t, r, st, 1, "system new Chorus")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "has been created")

	replies, _ = invoke(t, r, st, 1, "system")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Chorus")

	replies, _ = invoke(t, r, st, 1, "system new Again")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "already have a system")
}

func TestSystemContextShowsOtherSystem(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	other, err := st.CreateSystem(ctx, "Chorus", 2)
	require.NoError(t, err)
	_, err = st.CreateMember(ctx, other.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	// Account 1 has no system of its own but can look at Chorus by handle.
	replies, cc := invoke(t, r, st, 1, "system "+other.HID)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Chorus")
	assert.Contains(t, replies[0], other.HID)

	sys, ok := cc.SystemContext()
	require.True(t, ok)
	assert.Equal(t, other.ID, sys.ID)
}

func TestSystemContextList(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	other, err := st.CreateSystem(ctx, "Chorus", 2)
	require.NoError(t, err)
	echo, err := st.CreateMember(ctx, other.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "system "+other.HID+" list")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Echo")
	assert.Contains(t, replies[0], echo.HID)
}

// The long form "system <id> member list" is rewritten to
// "system member list" after binding and runs against the bound system.
func TestSystemContextMemberListChain(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	other, err := st.CreateSystem(ctx, "Chorus", 2)
	require.NoError(t, err)
	echo, err := st.CreateMember(ctx, other.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, cc := invoke(t, r, st, 1, "system "+other.HID+" member list")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Echo")
	assert.Contains(t, replies[0], echo.HID)

	sys, ok := cc.SystemContext()
	require.True(t, ok)
	assert.Equal(t, other.ID, sys.ID)
}

func TestSystemContextResolutionFailure(t *testing.T) {
	st := memstore.New()
	r := newTestRegistry(st)

	replies, cc := invoke(t, r, st, 1, "system zzzzz")
	require.Len(t, replies, 1)
	assert.Equal(t, "System with ID `zzzzz` not found.", replies[0])
	assert.False(t, cc.ContextBound())
}

// Binding is permanent within an invocation. A second reference token is
// not resolved; it falls out of dispatch as an ordinary unknown command.
func TestReentryGuard(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	first, err := st.CreateSystem(ctx, "First", 2)
	require.NoError(t, err)
	second, err := st.CreateSystem(ctx, "Second", 3)
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, cc := invoke(t, r, st, 1, "system "+first.HID+" "+second.HID)
	require.Len(t, replies, 1)
	assert.Equal(t, UnknownCommandMessage, replies[0])

	sys, ok := cc.SystemContext()
	require.True(t, ok)
	assert.Equal(t, first.ID, sys.ID, "the slot must keep the first binding")
}

// Named subcommands always beat the context entry point, even when the
// token could also be a valid reference.
func TestNamedSubcommandWins(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Chorus", 1)
	require.NoError(t, err)
	_, err = st.CreateMember(ctx, sys.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, cc := invoke(t, r, st, 1, "system list")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Echo")
	assert.False(t, cc.ContextBound(), "'list' must not be treated as a reference")
}

func TestMemberShowViaContext(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Chorus", 1)
	require.NoError(t, err)
	echo, err := st.CreateMember(ctx, sys.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	// By scoped name.
	replies, cc := invoke(t, r, st, 1, "member Echo")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Echo")
	mem, ok := cc.MemberContext()
	require.True(t, ok)
	assert.Equal(t, echo.ID, mem.ID)

	// By handle, from an account with no system.
	replies, _ = invoke(t, r, st, 9, "member "+echo.HID)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Echo")
}

func TestMemberRename(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Chorus", 1)
	require.NoError(t, err)
	echo, err := st.CreateMember(ctx, sys.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "member Echo rename Delta")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Delta")

	got, err := st.MemberByHID(ctx, echo.HID)
	require.NoError(t, err)
	assert.Equal(t, "Delta", got.Name)
}

func TestMemberEditRefusedForOtherSystem(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Chorus", 1)
	require.NoError(t, err)
	echo, err := st.CreateMember(ctx, sys.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 9, "member "+echo.HID+" rename Stolen")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "not in your system")

	got, err := st.MemberByHID(ctx, echo.HID)
	require.NoError(t, err)
	assert.Equal(t, "Echo", got.Name)
}

func TestMemberAvatarSetAndShow(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Chorus", 1)
	require.NoError(t, err)
	_, err = st.CreateMember(ctx, sys.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "member Echo avatar https://example.com/echo.png")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Avatar updated")

	replies, _ = invoke(t, r, st, 1, "member Echo avatar")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "https://example.com/echo.png")

	replies, _ = invoke(t, r, st, 1, "member Echo avatar not-a-url")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "valid image URL")
}

// A token left over after binding that matches nothing is reported exactly
// like any other unknown command.
func TestContextChainUnknownTail(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Chorus", 1)
	require.NoError(t, err)
	_, err = st.CreateMember(ctx, sys.ID, "Echo")
	require.NoError(t, err)

	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "member Echo bogus")
	require.Len(t, replies, 1)
	assert.Equal(t, UnknownCommandMessage, replies[0])
}

func TestEventSink(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	other, err := st.CreateSystem(ctx, "Chorus", 2)
	require.NoError(t, err)

	r := newTestRegistry(st)
	var events []string
	r.SetEventSink(func(eventType string, _ map[string]interface{}) {
		events = append(events, eventType)
	})

	invoke(t, r, st, 1, "system "+other.HID)
	assert.Contains(t, events, messaging.EventContextBound)

	events = nil
	invoke(t, r, st, 1, "system zzzzz")
	assert.Contains(t, events, messaging.EventResolutionFailed)
}

func TestHelp(t *testing.T) {
	st := memstore.New()
	r := newTestRegistry(st)

	replies, _ := invoke(t, r, st, 1, "help")
	require.Len(t, replies, 1)
	assert.True(t, strings.Contains(replies[0], "pl;system"))
	assert.True(t, strings.Contains(replies[0], "pl;member"))
}

func TestGroups(t *testing.T) {
	st := memstore.New()
	r := newTestRegistry(st)
	assert.Equal(t, []string{"help", "member", "system"}, r.Groups())
}
