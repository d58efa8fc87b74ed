package command

import (
	"context"
	"errors"
	"strings"

	"github.com/pluralhub/plural-gateway/internal/avatar"
	"github.com/pluralhub/plural-gateway/internal/store"
)

// RegisterMemberCommands wires the "member" group: card display, creation,
// renaming, avatar updates, and the member-reference context form.
func RegisterMemberCommands(r *Registry, st store.Store, res *MemberResolver, probe *avatar.Prober) {
	h := &memberCommands{store: st, probe: probe}
	g := r.Group("member")
	g.Default(h.show)
	g.Handle(10, h.create, "new", "create")
	g.Handle(10, h.rename, "rename")
	g.Handle(10, h.setAvatar, "avatar", "icon")
	r.EnableMemberContext(g, res)
}

type memberCommands struct {
	store store.Store
	probe *avatar.Prober
}

// editable returns the bound context member if it belongs to the invoker's
// system. Members of other systems can be viewed but not modified.
func (h *memberCommands) editable(cc *Context) (*store.Member, error) {
	mem, ok := cc.MemberContext()
	if !ok {
		return nil, cc.Reply("Usage: `member <name or ID> ...`")
	}
	if cc.Sender == nil || mem.SystemID != cc.Sender.ID {
		return nil, cc.Reply("Member `%s` is not in your system.", mem.HID)
	}
	return mem, nil
}

func (h *memberCommands) show(ctx context.Context, cc *Context, _ []string) error {
	mem, ok := cc.MemberContext()
	if !ok {
		return cc.Reply("Usage: `member <name or ID>`, or `member new <name>` to create one.")
	}

	var b strings.Builder
	b.WriteString("**" + mem.Name + "** (`" + mem.HID + "`)\n")
	if mem.AvatarURL != "" {
		b.WriteString("Avatar: " + mem.AvatarURL + "\n")
	}
	b.WriteString("Created: " + mem.Created.Format("2006-01-02"))
	return cc.Reply("%s", b.String())
}

func (h *memberCommands) create(ctx context.Context, cc *Context, args []string) error {
	if cc.Sender == nil {
		return cc.Reply("You don't have a system registered. Send `system new [name]` to create one first.")
	}
	name := strings.Join(args, " ")
	if name == "" {
		return cc.Reply("Usage: `member new <name>`")
	}
	mem, err := h.store.CreateMember(ctx, cc.Sender.ID, name)
	if errors.Is(err, store.ErrNameTaken) {
		return cc.Reply("You already have a member named \"%s\".", name)
	}
	if err != nil {
		return err
	}
	return cc.Reply("Member \"%s\" created. Its ID is `%s`.", mem.Name, mem.HID)
}

func (h *memberCommands) rename(ctx context.Context, cc *Context, args []string) error {
	mem, err := h.editable(cc)
	if mem == nil {
		return err
	}
	name := strings.Join(args, " ")
	if name == "" {
		return cc.Reply("Usage: `member <name or ID> rename <new name>`")
	}
	mem.Name = name
	if err := h.store.UpdateMember(ctx, mem); err != nil {
		return err
	}
	return cc.Reply("Member renamed to \"%s\".", name)
}

func (h *memberCommands) setAvatar(ctx context.Context, cc *Context, args []string) error {
	mem, err := h.editable(cc)
	if mem == nil {
		return err
	}
	if len(args) == 0 {
		if mem.AvatarURL == "" {
			return cc.Reply("Member \"%s\" has no avatar set.", mem.Name)
		}
		return cc.Reply("Current avatar: %s", mem.AvatarURL)
	}

	raw := args[0]
	if err := avatar.ValidateURL(raw); err != nil {
		return cc.Reply("That doesn't look like a valid image URL: %v", err)
	}
	if h.probe != nil {
		if err := h.probe.Probe(ctx, raw); err != nil {
			return cc.Reply("Could not use that URL as an avatar: %v", err)
		}
	}
	mem.AvatarURL = raw
	if err := h.store.UpdateMember(ctx, mem); err != nil {
		return err
	}
	return cc.Reply("Avatar updated for \"%s\".", mem.Name)
}
