package commands

import (
	"fmt"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/session"
)

// Status returns the built-in lifecycle command: with no argument it
// reports the dispatcher's current working-status; with "on"/"off" it
// toggles it. It is the one command registered with IsLifecycle set, so
// it keeps running while the bot is paused — otherwise an operator could
// never un-pause it. Grounded in bot/templates/status.py, extended per
// spec.md §4's description of status as a lifecycle toggle rather than
// the original's read-only report.
func Status() *registry.Descriptor {
	return &registry.Descriptor{
		Name:        "status",
		Aliases:     []string{"stat", "状态"},
		RequiredLvl: auth.SU,
		IsLifecycle: true,
		Comment:     "Reports or toggles the bot's working status.",
		Params:      "[on|off]",
		Handler: func(ctx registry.Context, sess *session.Session, args []string) error {
			if len(args) == 0 || args[0] == "" {
				state := "working"
				if !ctx.Working() {
					state = "paused"
				}
				return replyText(ctx, fmt.Sprintf("bot is currently %s", state))
			}

			switch args[0] {
			case "on":
				ctx.SetWorking(true)
				return replyText(ctx, "resumed")
			case "off":
				ctx.SetWorking(false)
				return replyText(ctx, "paused")
			default:
				return replyText(ctx, "usage: status [on|off]")
			}
		},
	}
}
