package command

import (
	"context"
	"fmt"
	"strings"
)

// RegisterHelpCommand wires the "help" group. prefix is the command prefix
// shown in the examples.
func RegisterHelpCommand(r *Registry, prefix string) {
	g := r.Group("help")
	g.Default(func(ctx context.Context, cc *Context, _ []string) error {
		return cc.Reply("%s", helpText(prefix))
	})
}

func helpText(prefix string) string {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	for _, line := range []struct{ cmd, desc string }{
		{"system", "show your system card"},
		{"system new [name]", "register a new system"},
		{"system list", "list your system's members"},
		{"system link <@account>", "link another account to your system"},
		{"system <id> [list]", "look at another system"},
		{"member new <name>", "add a member to your system"},
		{"member <name or id>", "show a member card"},
		{"member <name or id> rename <new name>", "rename a member"},
		{"member <name or id> avatar [url]", "show or set a member's avatar"},
	} {
		fmt.Fprintf(&b, "`%s%s` - %s\n", prefix, line.cmd, line.desc)
	}
	return strings.TrimRight(b.String(), "\n")
}
