package commands

import (
	"strings"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/session"
)

// Echo returns the user-facing echo command: it repeats its arguments
// back verbatim. Also the target of runFuzzy's keyword matches, which
// call it with a single rendered-answer argument. Grounded in
// bot/templates/echo.py.
func Echo() *registry.Descriptor {
	return &registry.Descriptor{
		Name:        "echo",
		Aliases:     []string{"print", "复读"},
		RequiredLvl: auth.User,
		Comment:     "Repeats its argument back.",
		Params:      "[文本]",
		Handler: func(ctx registry.Context, sess *session.Session, args []string) error {
			return replyText(ctx, strings.Join(args, " "))
		},
	}
}

// SystemEcho returns the unauthenticated "system echo": spec.md §7 has
// the dispatcher use this class of echo internally for error notices
// that must reach even a blacklisted caller; this registers the same
// behavior as a directly-callable command for probing the pipeline
// without an authorized identity. Grounded in bot/core/cmd/echo.py's
// system-level variant.
func SystemEcho() *registry.Descriptor {
	return &registry.Descriptor{
		Name:    "necho",
		Bypass:  true,
		Comment: "Unauthenticated echo, bypasses authorization.",
		Params:  "[文本]",
		Handler: func(ctx registry.Context, sess *session.Session, args []string) error {
			return replyText(ctx, strings.Join(args, " "))
		},
	}
}
