package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluralhub/plural-gateway/internal/channel"
	"github.com/pluralhub/plural-gateway/internal/store"
	"github.com/pluralhub/plural-gateway/internal/store/memstore"
)

// fakeIdentities is an IdentityResolver backed by a map.
type fakeIdentities map[uint64]*channel.Identity

func (f fakeIdentities) ResolveIdentity(_ context.Context, id uint64) (*channel.Identity, error) {
	return f[id], nil
}

func TestParseMention(t *testing.T) {
	for _, tc := range []struct {
		token string
		id    uint64
		ok    bool
	}{
		{"<@466378653216014359>", 466378653216014359, true},
		{"<@!466378653216014359>", 466378653216014359, true},
		{"<@abc>", 0, false},
		{"<@466378653216014359", 0, false},
		{"466378653216014359", 0, false},
		{"", 0, false},
	} {
		id, ok := parseMention(tc.token)
		assert.Equal(t, tc.ok, ok, "token %q", tc.token)
		assert.Equal(t, tc.id, id, "token %q", tc.token)
	}
}

func TestSystemResolverNumericAccount(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Test System", 1234567890123)
	require.NoError(t, err)

	res := &SystemResolver{Store: st}
	got, err := res.Resolve(ctx, "1234567890123")
	require.NoError(t, err)
	assert.Equal(t, sys.ID, got.ID)
}

func TestSystemResolverMention(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Test System", 42)
	require.NoError(t, err)

	res := &SystemResolver{Store: st}
	for _, token := range []string{"<@42>", "<@!42>"} {
		got, err := res.Resolve(ctx, token)
		require.NoError(t, err, "token %q", token)
		assert.Equal(t, sys.ID, got.ID, "token %q", token)
	}
}

func TestSystemResolverHandle(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	sys, err := st.CreateSystem(ctx, "Test System", 42)
	require.NoError(t, err)

	res := &SystemResolver{Store: st}
	got, err := res.Resolve(ctx, sys.HID)
	require.NoError(t, err)
	assert.Equal(t, sys.ID, got.ID)
}

func TestSystemResolverHandleMiss(t *testing.T) {
	res := &SystemResolver{Store: memstore.New()}
	_, err := res.Resolve(context.Background(), "zzzzz")

	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, FailureNotFound, rerr.Kind)
	assert.Equal(t, "System with ID `zzzzz` not found.", rerr.Message)
}

func TestSystemResolverAccountWithoutSystem(t *testing.T) {
	idents := fakeIdentities{
		555: {ID: 555, Name: "craig", Discriminator: "5529"},
	}
	res := &SystemResolver{Store: memstore.New(), Identities: idents}

	_, err := res.Resolve(context.Background(), "555")
	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, FailureAccountNoSystem, rerr.Kind)
	assert.Equal(t, "Account **craig#5529** not found.", rerr.Message)
}

func TestSystemResolverUnknownAccount(t *testing.T) {
	res := &SystemResolver{Store: memstore.New(), Identities: fakeIdentities{}}

	_, err := res.Resolve(context.Background(), "1234567890123")
	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, FailureNotFound, rerr.Kind)
	assert.Equal(t, "System or account with ID `1234567890123` not found.", rerr.Message)
}

// A numeric token commits to the account branch even when the account is
// unknown. It must not fall through to a handle lookup.
func TestSystemResolverNumericNoFallthrough(t *testing.T) {
	res := &SystemResolver{Store: memstore.New()}

	_, err := res.Resolve(context.Background(), "12345")
	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "System or account with ID `12345` not found.", rerr.Message)
}

// The identity lookup only runs when the account branch misses the store.
func TestSystemResolverNoIdentityLookupOnHit(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	_, err := st.CreateSystem(ctx, "Test System", 42)
	require.NoError(t, err)

	res := &SystemResolver{Store: st, Identities: countingIdentities{t: t}}
	_, err = res.Resolve(ctx, "42")
	require.NoError(t, err)
}

type countingIdentities struct{ t *testing.T }

func (c countingIdentities) ResolveIdentity(context.Context, uint64) (*channel.Identity, error) {
	c.t.Error("identity lookup must not run when the store has the account")
	return nil, nil
}

func TestMemberResolverScopedName(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	invoker, err := st.CreateSystem(ctx, "Invoker", 1)
	require.NoError(t, err)
	other, err := st.CreateSystem(ctx, "Other", 2)
	require.NoError(t, err)

	mine, err := st.CreateMember(ctx, invoker.ID, "Myriad")
	require.NoError(t, err)
	_, err = st.CreateMember(ctx, other.ID, "Myriad")
	require.NoError(t, err)

	res := &MemberResolver{Store: st}
	got, err := res.Resolve(ctx, invoker, "Myriad")
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID, "name lookup must be scoped to the invoker's system")
}

func TestMemberResolverNameCaseSensitive(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	invoker, err := st.CreateSystem(ctx, "Invoker", 1)
	require.NoError(t, err)
	_, err = st.CreateMember(ctx, invoker.ID, "Myriad")
	require.NoError(t, err)

	res := &MemberResolver{Store: st}
	_, err = res.Resolve(ctx, invoker, "myriad")
	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Member 'myriad' not found.", rerr.Message)
}

func TestMemberResolverHandleFallback(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	other, err := st.CreateSystem(ctx, "Other", 2)
	require.NoError(t, err)
	mem, err := st.CreateMember(ctx, other.ID, "Myriad")
	require.NoError(t, err)

	// No invoker system at all: only the handle works.
	res := &MemberResolver{Store: st}
	got, err := res.Resolve(ctx, nil, mem.HID)
	require.NoError(t, err)
	assert.Equal(t, mem.ID, got.ID)

	_, err = res.Resolve(ctx, nil, "Myriad")
	var rerr *ResolveError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, FailureNotFound, rerr.Kind)
}

func TestMemberResolverSameNameTieBreak(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	invoker, err := st.CreateSystem(ctx, "Invoker", 1)
	require.NoError(t, err)

	lowest := "zzzzz"
	for i := 0; i < 5; i++ {
		mem, err := st.CreateMember(ctx, invoker.ID, "Echo")
		require.NoError(t, err)
		if mem.HID < lowest {
			lowest = mem.HID
		}
	}

	res := &MemberResolver{Store: st}
	for i := 0; i < 10; i++ {
		got, err := res.Resolve(ctx, invoker, "Echo")
		require.NoError(t, err)
		assert.Equal(t, lowest, got.HID, "repeated lookups must stay deterministic")
	}
}

func TestResolveErrorIsError(t *testing.T) {
	var err error = &ResolveError{Kind: FailureNotFound, Message: "Member 'x' not found."}
	assert.Equal(t, "Member 'x' not found.", err.Error())

	var rerr *ResolveError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &rerr))
}

var _ store.Store = (*memstore.MemStore)(nil)
