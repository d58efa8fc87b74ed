package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pluralhub/plural-gateway/internal/channel"
	"github.com/pluralhub/plural-gateway/internal/store"
)

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// parseMention extracts the numeric account ID from platform mention syntax
// (<@ID> or <@!ID>).
func parseMention(token string) (uint64, bool) {
	m := mentionPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SystemResolver disambiguates a raw token into a system lookup. Tokens are
// classified in order: numeric account ID, mention, short handle. The first
// branch that matches commits; there is no fallthrough to a later
// classification.
type SystemResolver struct {
	Store      store.Store
	Identities channel.IdentityResolver
}

// Resolve returns exactly one of a system or a *ResolveError.
func (r *SystemResolver) Resolve(ctx context.Context, token string) (*store.System, error) {
	if id, err := strconv.ParseUint(token, 10, 64); err == nil {
		return r.resolveAccount(ctx, id)
	}

	if id, ok := parseMention(token); ok {
		return r.resolveAccount(ctx, id)
	}

	sys, err := r.Store.SystemByHID(ctx, token)
	if err != nil {
		return nil, err
	}
	if sys == nil {
		return nil, &ResolveError{
			Kind:    FailureNotFound,
			Message: fmt.Sprintf("System with ID `%s` not found.", token),
		}
	}
	return sys, nil
}

// resolveAccount looks up the system linked to an account ID. On a miss a
// single identity lookup against the chat transport distinguishes an
// unlinked account from an unknown one.
func (r *SystemResolver) resolveAccount(ctx context.Context, id uint64) (*store.System, error) {
	sys, err := r.Store.SystemByAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if sys != nil {
		return sys, nil
	}

	if r.Identities != nil {
		ident, err := r.Identities.ResolveIdentity(ctx, id)
		if err == nil && ident != nil {
			return nil, &ResolveError{
				Kind:    FailureAccountNoSystem,
				Message: fmt.Sprintf("Account **%s** not found.", ident.Tag()),
			}
		}
	}
	return nil, &ResolveError{
		Kind:    FailureNotFound,
		Message: fmt.Sprintf("System or account with ID `%d` not found.", id),
	}
}

// MemberResolver resolves a raw token to a member. When the invoker belongs
// to a system the display name is tried first, scoped to that system, so
// system members can refer to each other by name; the globally unique
// handle is the fallback for everyone else.
type MemberResolver struct {
	Store store.Store
}

// Resolve returns exactly one of a member or a *ResolveError. invoker is
// the invoking account's own system and may be nil.
func (r *MemberResolver) Resolve(ctx context.Context, invoker *store.System, token string) (*store.Member, error) {
	if invoker != nil {
		mem, err := r.Store.MemberByName(ctx, invoker.ID, token)
		if err != nil {
			return nil, err
		}
		if mem != nil {
			return mem, nil
		}
	}

	mem, err := r.Store.MemberByHID(ctx, token)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, &ResolveError{
			Kind:    FailureNotFound,
			Message: fmt.Sprintf("Member '%s' not found.", token),
		}
	}
	return mem, nil
}
