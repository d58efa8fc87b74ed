package command

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pluralhub/plural-gateway/internal/messaging"
	"github.com/pluralhub/plural-gateway/internal/metrics"
)

// UnknownCommandMessage is the generic not-found reply. The re-entry guard
// deliberately reuses it so that re-binding an already bound context looks
// like an ordinary unknown command, not an internal routing error.
const UnknownCommandMessage = "Unknown command. Send `help` for a list of commands."

// syntheticPriority sorts the context-parameter entry point after every
// named subcommand, so it only fires when nothing more specific matched.
const syntheticPriority = -1 << 31

// HandlerFunc executes a leaf command. args holds the tokens remaining
// after the matched subcommand key.
type HandlerFunc func(ctx context.Context, cc *Context, args []string) error

// Command is one registered handler inside a group. A command with no keys
// is a catch-all: it matches any first token and receives all remaining
// tokens unconsumed.
type Command struct {
	Keys     []string
	Priority int
	Guard    func(*Context) bool
	Run      HandlerFunc
}

func (c *Command) matches(token string) bool {
	if len(c.Keys) == 0 {
		return true
	}
	for _, k := range c.Keys {
		if strings.EqualFold(k, token) {
			return true
		}
	}
	return false
}

// Group is a top-level command group ("system", "member").
type Group struct {
	Name      string
	commands  []*Command
	defaultFn HandlerFunc
}

// Handle registers a named subcommand.
func (g *Group) Handle(priority int, run HandlerFunc, keys ...string) {
	g.add(&Command{Keys: keys, Priority: priority, Run: run})
}

// Default registers the handler for a bare group invocation with no
// further tokens.
func (g *Group) Default(run HandlerFunc) {
	g.defaultFn = run
}

func (g *Group) add(cmd *Command) {
	g.commands = append(g.commands, cmd)
	sort.SliceStable(g.commands, func(i, j int) bool {
		return g.commands[i].Priority > g.commands[j].Priority
	})
}

// EventSink receives command lifecycle events.
type EventSink func(eventType string, payload map[string]interface{})

// Registry routes prefix-stripped command text to group handlers and
// implements the context-parameter routing protocol.
type Registry struct {
	groups map[string]*Group
	logger *slog.Logger
	events EventSink
}

// NewRegistry creates an empty command registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		groups: make(map[string]*Group),
		logger: logger,
	}
}

// SetEventSink wires an optional lifecycle event consumer.
func (r *Registry) SetEventSink(sink EventSink) {
	r.events = sink
}

// Group returns the named group, creating it on first use.
func (r *Registry) Group(name string) *Group {
	name = strings.ToLower(name)
	g, ok := r.groups[name]
	if !ok {
		g = &Group{Name: name}
		r.groups[name] = g
	}
	return g
}

// Groups lists registered group names in sorted order.
func (r *Registry) Groups() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnableSystemContext registers the synthetic context entry point on g: an
// unmatched first token is resolved as a system reference, bound to the
// invocation's context, and the command is re-dispatched once with the
// token removed. The guard blocks a second pass through the same path.
func (r *Registry) EnableSystemContext(g *Group, res *SystemResolver) {
	g.add(&Command{
		Priority: syntheticPriority,
		Guard:    func(cc *Context) bool { return !cc.ContextBound() },
		Run: func(ctx context.Context, cc *Context, args []string) error {
			token, rest := args[0], args[1:]
			sys, err := res.Resolve(ctx, token)
			if err != nil {
				return r.resolutionFailed(cc, g, err)
			}
			cc.SetContextSystem(sys)
			r.emit(messaging.EventContextBound, map[string]interface{}{
				"group": g.Name,
				"kind":  "system",
				"hid":   sys.HID,
			})
			return r.redispatch(ctx, cc, g, rest)
		},
	})
}

// EnableMemberContext is the member-reference variant of the context entry
// point.
func (r *Registry) EnableMemberContext(g *Group, res *MemberResolver) {
	g.add(&Command{
		Priority: syntheticPriority,
		Guard:    func(cc *Context) bool { return !cc.ContextBound() },
		Run: func(ctx context.Context, cc *Context, args []string) error {
			token, rest := args[0], args[1:]
			mem, err := res.Resolve(ctx, cc.Sender, token)
			if err != nil {
				return r.resolutionFailed(cc, g, err)
			}
			cc.SetContextMember(mem)
			r.emit(messaging.EventContextBound, map[string]interface{}{
				"group": g.Name,
				"kind":  "member",
				"hid":   mem.HID,
			})
			return r.redispatch(ctx, cc, g, rest)
		},
	})
}

// Dispatch routes one prefix-stripped command line. It is re-entered at
// most once per invocation, by the context entry points.
func (r *Registry) Dispatch(ctx context.Context, cc *Context, text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return cc.Reply("%s", UnknownCommandMessage)
	}

	g, ok := r.groups[strings.ToLower(fields[0])]
	if !ok {
		metrics.CommandCount.WithLabelValues("none", "unknown").Inc()
		return cc.Reply("%s", UnknownCommandMessage)
	}

	start := time.Now()
	err := r.dispatchGroup(ctx, cc, g, fields[1:])
	metrics.CommandDuration.WithLabelValues(g.Name).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		r.logger.Error("command failed", "group", g.Name, "error", err)
	}
	metrics.CommandCount.WithLabelValues(g.Name, status).Inc()
	return err
}

func (r *Registry) dispatchGroup(ctx context.Context, cc *Context, g *Group, args []string) error {
	if len(args) == 0 {
		if g.defaultFn != nil {
			return g.defaultFn(ctx, cc, nil)
		}
		return cc.Reply("%s", UnknownCommandMessage)
	}

	for _, cmd := range g.commands {
		if !cmd.matches(args[0]) {
			continue
		}
		if cmd.Guard != nil && !cmd.Guard(cc) {
			continue
		}
		rest := args[1:]
		if len(cmd.Keys) == 0 {
			// Catch-all commands consume no key.
			rest = args
		}
		return cmd.Run(ctx, cc, rest)
	}

	// Nothing matched. With a bound context this is also where a blocked
	// second pass through the synthetic handler lands.
	return cc.Reply("%s", UnknownCommandMessage)
}

// redispatch re-invokes the full dispatcher against the same Context with
// the reference token removed. The call is synchronous: the outer
// invocation completes only after the inner chain does.
func (r *Registry) redispatch(ctx context.Context, cc *Context, g *Group, rest []string) error {
	metrics.ContextRedispatches.Inc()
	text := g.Name
	if len(rest) > 0 {
		text += " " + strings.Join(rest, " ")
	}
	r.logger.Debug("re-dispatching with bound context", "text", text)
	return r.Dispatch(ctx, cc, text)
}

// resolutionFailed reports a resolver failure to the user. Typed failures
// render their message verbatim; infrastructure errors propagate.
func (r *Registry) resolutionFailed(cc *Context, g *Group, err error) error {
	var rerr *ResolveError
	if !errors.As(err, &rerr) {
		return err
	}
	metrics.ResolutionFailures.WithLabelValues(rerr.Kind.String()).Inc()
	r.emit(messaging.EventResolutionFailed, map[string]interface{}{
		"group": g.Name,
		"kind":  rerr.Kind.String(),
	})
	return cc.Reply("%s", rerr.Message)
}

func (r *Registry) emit(eventType string, payload map[string]interface{}) {
	if r.events != nil {
		r.events(eventType, payload)
	}
}
