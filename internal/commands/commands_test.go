package commands

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/protocol"
	"github.com/ashlock/gatekit/internal/registry"
)

func msgEvent(userID int64, private bool, groupID int64) *protocol.Event {
	sub := protocol.SubtypePrivate
	if !private {
		sub = protocol.SubtypeGroupNormal
	}
	return &protocol.Event{
		Kind: protocol.KindMessage,
		Message: &protocol.MessagePayload{
			Sender:  protocol.Sender{UserID: userID},
			GroupID: groupID,
			Subtype: sub,
		},
	}
}

// testCtx builds a registry.Context backed by fakes, capturing every
// action a handler sends.
func testCtx(e *protocol.Event) (registry.Context, *[]*protocol.Action) {
	var sent []*protocol.Action
	working := true
	return registry.Context{
		Event: e,
		Send: func(a *protocol.Action) {
			sent = append(sent, a)
		},
		Wait: func(a *protocol.Action) (*protocol.Event, error) {
			return &protocol.Event{Kind: protocol.KindResponse, Response: &protocol.ResponsePayload{
				Status: protocol.StatusOK,
				Data:   map[string]any{"nickname": "gatekit-bot", "user_id": float64(42)},
			}}, nil
		},
		Logger:     slog.Default(),
		Level:      func(*protocol.Event) auth.UserLevel { return auth.SU },
		Working:    func() bool { return working },
		SetWorking: func(v bool) { working = v },
		All: func() []*registry.Descriptor {
			return []*registry.Descriptor{Echo(), Help(), Info(InfoConfig{}), Poke(), Status()}
		},
	}, &sent
}

func firstText(t *testing.T, sent []*protocol.Action) string {
	t.Helper()
	if len(sent) == 0 {
		t.Fatal("no action sent")
	}
	msg, ok := sent[0].Params["message"].([]map[string]any)
	if !ok || len(msg) == 0 {
		t.Fatalf("action carried no message segments: %+v", sent[0].Params)
	}
	data, _ := msg[0]["data"].(map[string]any)
	text, _ := data["text"].(string)
	return text
}

func TestEchoRepeatsArgs(t *testing.T) {
	e := msgEvent(1, true, 0)
	ctx, sent := testCtx(e)

	if err := Echo().Handler(ctx, nil, []string{"hello", "world"}); err != nil {
		t.Fatalf("Echo handler: %v", err)
	}
	if got := firstText(t, *sent); got != "hello world" {
		t.Errorf("echoed %q, want %q", got, "hello world")
	}
}

func TestSystemEchoBypassesAuth(t *testing.T) {
	desc := SystemEcho()
	if !desc.Bypass {
		t.Fatal("SystemEcho must set Bypass")
	}
	if desc.RequiredLvl != 0 {
		t.Errorf("SystemEcho.RequiredLvl = %v, want zero value (never consulted)", desc.RequiredLvl)
	}
}

func TestPokeFromMessageTargetsSender(t *testing.T) {
	e := msgEvent(7, true, 0)
	ctx, sent := testCtx(e)

	if err := Poke().Handler(ctx, nil, nil); err != nil {
		t.Fatalf("Poke handler: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("got %d actions, want 1", len(*sent))
	}
	if (*sent)[0].Params["user_id"] != int64(7) {
		t.Errorf("poke targeted user_id %v, want 7", (*sent)[0].Params["user_id"])
	}
}

func TestPokeFromNoticeTargetsOperator(t *testing.T) {
	e := &protocol.Event{
		Kind:   protocol.KindNotice,
		Notice: &protocol.NoticePayload{Subtype: protocol.NoticePoke, UserID: 1, OperatorID: 99, GroupID: 0},
	}
	ctx, sent := testCtx(e)

	if err := Poke().Handler(ctx, nil, nil); err != nil {
		t.Fatalf("Poke handler: %v", err)
	}
	if (*sent)[0].Params["user_id"] != int64(99) {
		t.Errorf("poke targeted user_id %v, want 99 (the operator)", (*sent)[0].Params["user_id"])
	}
}

func TestStatusReportsThenToggles(t *testing.T) {
	e := msgEvent(1, true, 0)
	ctx, sent := testCtx(e)

	if err := Status().Handler(ctx, nil, nil); err != nil {
		t.Fatalf("Status handler: %v", err)
	}
	if got := firstText(t, *sent); !strings.Contains(got, "working") {
		t.Errorf("status report %q, want it to mention working", got)
	}

	if err := Status().Handler(ctx, nil, []string{"off"}); err != nil {
		t.Fatalf("Status handler: %v", err)
	}
	if ctx.Working() {
		t.Error("status off should have cleared working")
	}
}

func TestHelpSummaryFiltersByLevel(t *testing.T) {
	e := msgEvent(1, true, 0)
	ctx, sent := testCtx(e)
	ctx.Level = func(*protocol.Event) auth.UserLevel { return auth.User }

	if err := Help().Handler(ctx, nil, nil); err != nil {
		t.Fatalf("Help handler: %v", err)
	}
	got := firstText(t, *sent)
	if !strings.Contains(got, "echo") {
		t.Errorf("help summary %q should list echo (User level)", got)
	}
	if strings.Contains(got, "status") {
		t.Errorf("help summary %q should not list status (SU level) for a User caller", got)
	}
}

func TestHelpDetailRendersComment(t *testing.T) {
	e := msgEvent(1, true, 0)
	ctx, sent := testCtx(e)

	if err := Help().Handler(ctx, nil, []string{"echo"}); err != nil {
		t.Fatalf("Help handler: %v", err)
	}
	got := firstText(t, *sent)
	if !strings.Contains(got, "echo") || !strings.Contains(got, "Repeats") {
		t.Errorf("help detail %q missing expected name/comment", got)
	}
}

func TestInfoReportsLoginAndQRCode(t *testing.T) {
	e := msgEvent(1, true, 0)
	ctx, sent := testCtx(e)

	if err := Info(InfoConfig{BotName: "gatekit", ProfileURL: "https://example.test/me"}).Handler(ctx, nil, nil); err != nil {
		t.Fatalf("Info handler: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("got %d actions, want 1", len(*sent))
	}
	msg, _ := (*sent)[0].Params["message"].([]map[string]any)
	if len(msg) != 2 {
		t.Fatalf("got %d segments, want 2 (text + QR image)", len(msg))
	}
	if msg[1]["type"] != string(protocol.SegImage) {
		t.Errorf("segment[1] type = %v, want image", msg[1]["type"])
	}
}
