package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pluralhub/plural-gateway/internal/store"
)

// RegisterSystemCommands wires the "system" group: card display, creation,
// member listing, account linking, and the system-reference context form.
func RegisterSystemCommands(r *Registry, st store.Store, res *SystemResolver) {
	h := &systemCommands{store: st}
	g := r.Group("system")
	g.Default(h.show)
	g.Handle(10, h.create, "new", "create")
	g.Handle(10, h.list, "list", "members")
	g.Handle(10, h.memberSub, "member")
	g.Handle(10, h.link, "link")
	r.EnableSystemContext(g, res)
}

type systemCommands struct {
	store store.Store
}

// target returns the system this invocation operates on: the bound context
// system when one is set, the invoker's own system otherwise.
func (h *systemCommands) target(cc *Context) *store.System {
	if sys, ok := cc.SystemContext(); ok {
		return sys
	}
	return cc.Sender
}

func (h *systemCommands) show(ctx context.Context, cc *Context, _ []string) error {
	sys := h.target(cc)
	if sys == nil {
		return cc.Reply("You don't have a system registered. Send `system new [name]` to create one.")
	}
	members, err := h.store.MembersBySystem(ctx, sys.ID)
	if err != nil {
		return err
	}

	var b strings.Builder
	name := sys.Name
	if name == "" {
		name = "*(unnamed system)*"
	}
	fmt.Fprintf(&b, "**%s** (`%s`)\n", name, sys.HID)
	if sys.Tag != "" {
		fmt.Fprintf(&b, "Tag: %s\n", sys.Tag)
	}
	fmt.Fprintf(&b, "Members: %d\n", len(members))
	fmt.Fprintf(&b, "Created: %s", sys.Created.Format("2006-01-02"))
	return cc.Reply("%s", b.String())
}

func (h *systemCommands) create(ctx context.Context, cc *Context, args []string) error {
	if cc.Sender != nil {
		return cc.Reply("You already have a system registered (`%s`). To delete it, contact an administrator.", cc.Sender.HID)
	}
	name := strings.Join(args, " ")
	sys, err := h.store.CreateSystem(ctx, name, cc.Account)
	if err != nil {
		return err
	}
	return cc.Reply("Your system has been created. Its ID is `%s`; use it to refer to your system in commands.", sys.HID)
}

func (h *systemCommands) list(ctx context.Context, cc *Context, _ []string) error {
	sys := h.target(cc)
	if sys == nil {
		return cc.Reply("You don't have a system registered. Send `system new [name]` to create one.")
	}
	members, err := h.store.MembersBySystem(ctx, sys.ID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return cc.Reply("System `%s` has no members. Send `member new <name>` to add one.", sys.HID)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].HID < members[j].HID })

	var b strings.Builder
	fmt.Fprintf(&b, "Members of `%s` (%d):\n", sys.HID, len(members))
	for _, m := range members {
		fmt.Fprintf(&b, "[`%s`] %s\n", m.HID, m.Name)
	}
	return cc.Reply("%s", strings.TrimRight(b.String(), "\n"))
}

// memberSub handles the "system ... member list" long form.
func (h *systemCommands) memberSub(ctx context.Context, cc *Context, args []string) error {
	if len(args) == 1 && strings.EqualFold(args[0], "list") {
		return h.list(ctx, cc, nil)
	}
	return cc.Reply("Usage: `system [id] member list`")
}

// link attaches another chat account to the invoker's own system. Linking
// into someone else's system is not allowed, so the bound context is
// ignored here on purpose.
func (h *systemCommands) link(ctx context.Context, cc *Context, args []string) error {
	if cc.Sender == nil {
		return cc.Reply("You don't have a system registered. Send `system new [name]` to create one.")
	}
	if len(args) != 1 {
		return cc.Reply("Usage: `system link <account>`")
	}
	id, ok := parseMention(args[0])
	if !ok {
		return cc.Reply("Could not parse %s as an account mention.", args[0])
	}
	err := h.store.LinkAccount(ctx, cc.Sender.ID, id)
	if errors.Is(err, store.ErrAccountLinked) {
		return cc.Reply("That account is already linked to a system.")
	}
	if err != nil {
		return err
	}
	return cc.Reply("Account linked to your system.")
}
