// Package commands holds the built-in command templates every gatekit
// deployment registers alongside its user-supplied handlers: echo, help,
// info, poke, and the status/lifecycle toggle.
package commands

import (
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/registry"
)

// sendSegs addresses segs back to the conversation e arrived on —
// private or group, matching however the triggering event was addressed.
// e with no Message payload (a bare notice) is a no-op, since there is
// no send_msg target to infer.
func sendSegs(ctx registry.Context, segs []protocol.Segment) {
	e := ctx.Event
	if e == nil || e.Message == nil {
		return
	}
	ctx.Send(protocol.SendMsg(segs, e.Message.IsPrivate(), e.Message.Sender.UserID, e.Message.GroupID, e))
}

// replyText sends a single plain-text reply.
func replyText(ctx registry.Context, text string) error {
	sendSegs(ctx, []protocol.Segment{protocol.Text(text)})
	return nil
}
