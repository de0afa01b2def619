package commands

import (
	"strconv"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/session"
)

// Poke returns the built-in poke command: it nudges back whoever poked
// the bot (invoked implicitly off a self-poke notice, spec.md §4.7 step
// 3) or whoever invoked it directly by name. Grounded in
// bot/templates/poke.py.
func Poke() *registry.Descriptor {
	return &registry.Descriptor{
		Name:        "poke",
		Aliases:     []string{"戳"},
		RequiredLvl: auth.User,
		Comment:     "Pokes back whoever poked the bot, or the caller.",
		Params:      "无参数",
		Handler: func(ctx registry.Context, sess *session.Session, args []string) error {
			e := ctx.Event

			var userID, groupID int64
			var private bool
			switch {
			case e.IsMessage():
				userID = e.Message.Sender.UserID
				groupID = e.Message.GroupID
				private = e.Message.IsPrivate()
			case e.IsNotice():
				userID = e.Notice.OperatorID
				groupID = e.Notice.GroupID
				private = groupID == 0
			default:
				return nil
			}

			action := protocol.SendMsg(
				[]protocol.Segment{protocol.Poke(strconv.FormatInt(userID, 10))},
				private, userID, groupID, e,
			)
			ctx.Send(action)
			return nil
		},
	}
}
