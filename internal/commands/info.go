package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/buildinfo"
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/session"
)

// InfoConfig carries the identity details the info command reports,
// supplied at registration time by the entry point.
type InfoConfig struct {
	BotName string
	// ProfileURL, when non-empty, is rendered as a QR code image segment
	// appended to the reply (e.g. a link to the bot's profile page).
	ProfileURL string
}

// Info returns the built-in info command: it reports the bot's name,
// live login identity (fetched fresh via get_login_info), and build
// version, with an optional QR code of the bot's self-profile URL.
// Grounded in bot/templates/info.py.
func Info(cfg InfoConfig) *registry.Descriptor {
	return &registry.Descriptor{
		Name:        "info",
		Aliases:     []string{"信息"},
		RequiredLvl: auth.User,
		Comment:     "Reports bot identity and build version.",
		Params:      "无参数",
		Handler: func(ctx registry.Context, sess *session.Session, args []string) error {
			e := ctx.Event

			nickname, userID := "unknown", int64(0)
			if resp, err := ctx.Wait(protocol.GetLoginInfo(e)); err != nil {
				ctx.Logger.Error("info: get_login_info failed", "error", err)
			} else if resp.Response != nil {
				if n, ok := resp.Response.Data["nickname"].(string); ok {
					nickname = n
				}
				switch v := resp.Response.Data["user_id"].(type) {
				case float64:
					userID = int64(v)
				case int64:
					userID = v
				}
			}

			body := fmt.Sprintf(
				"bot name: %s\nlogin: %s (%d)\nversion: %s\nuptime: %s",
				cfg.BotName, nickname, userID, buildinfo.Version, buildinfo.Uptime(),
			)

			segs := []protocol.Segment{protocol.Text(body)}
			if cfg.ProfileURL != "" {
				png, err := qrcode.Encode(cfg.ProfileURL, qrcode.Medium, 256)
				if err != nil {
					ctx.Logger.Error("info: failed to render QR code", "error", err)
				} else {
					segs = append(segs, protocol.Image("base64://"+base64.StdEncoding.EncodeToString(png)))
				}
			}

			sendSegs(ctx, segs)
			return nil
		},
	}
}
