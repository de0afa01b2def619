package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// frame mirrors the gateway's inbound JSON frame shape (spec.md §6):
// a flat dictionary whose fields vary by post_type. Response frames
// (which carry retcode/echo instead of post_type) are detected by the
// absence of post_type.
type frame struct {
	PostType      string          `json:"post_type"`
	Time          int64           `json:"time"`
	SelfID        int64           `json:"self_id"`
	MessageType   string          `json:"message_type"`
	SubType       string          `json:"sub_type"`
	MessageID     int64           `json:"message_id"`
	RawMessage    string          `json:"raw_message"`
	Message       json.RawMessage `json:"message"`
	Sender        senderFrame     `json:"sender"`
	GroupID       int64           `json:"group_id"`
	Anonymous     *anonymFrame    `json:"anonymous"`
	UserID        int64           `json:"user_id"`
	OperatorID    int64           `json:"operator_id"`
	TargetID      int64           `json:"target_id"`
	Comment       string          `json:"comment"`
	Flag          string          `json:"flag"`
	NoticeType    string          `json:"notice_type"`
	MetaEventType string          `json:"meta_event_type"`
	RequestType   string          `json:"request_type"`

	Retcode int             `json:"retcode"`
	Status  string          `json:"status"`
	Msg     string          `json:"msg"`
	Wording string          `json:"wording"`
	Data    json.RawMessage `json:"data"`
	Echo    string          `json:"echo"`
}

type senderFrame struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type anonymFrame struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// segmentFrame is one element of the array form of the message field.
type segmentFrame struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// DecodeEvent parses one inbound gateway frame into an Event. Callers skip
// empty frames before calling it (spec.md §4.1). DecodeEvent reports an
// error for input that is not valid JSON (an empty string included), for
// an unrecognized post_type, and for a message field of unknown shape.
func DecodeEvent(raw string) (*Event, error) {
	var f frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	e := &Event{
		Time:  time.Unix(f.Time, 0),
		BotID: f.SelfID,
		Raw:   raw,
	}

	postType := f.PostType
	if postType == "message_sent" {
		postType = "message"
	}

	switch postType {
	case "message":
		e.Kind = KindMessage
		segs, err := decodeMessageField(f.Message, f.RawMessage)
		if err != nil {
			return nil, err
		}
		e.Message = &MessagePayload{
			MessageID: f.MessageID,
			Segments:  segs,
			Text:      FlattenText(segs),
			Sender: Sender{
				UserID:    f.Sender.UserID,
				Nickname:  f.Sender.Nickname,
				GroupRole: f.Sender.Role,
				Anonymous: f.Anonymous != nil,
			},
			GroupID: f.GroupID,
			Subtype: messageSubtype(f.MessageType, f.SubType, f.Anonymous != nil),
		}
	case "notice":
		e.Kind = KindNotice
		e.Notice = &NoticePayload{
			Subtype:    noticeSubtype(f.NoticeType),
			UserID:     f.UserID,
			OperatorID: f.OperatorID,
			TargetID:   f.TargetID,
			GroupID:    f.GroupID,
		}
	case "request":
		e.Kind = KindRequest
		sub := RequestFriendAdd
		if f.RequestType == "group" {
			sub = RequestGroupAdd
		}
		e.Request = &RequestPayload{
			Subtype: sub,
			UserID:  f.UserID,
			GroupID: f.GroupID,
			Comment: f.Comment,
			Flag:    f.Flag,
		}
	case "meta_event":
		e.Kind = KindMeta
		sub := MetaHeartbeat
		if f.MetaEventType == "lifecycle" {
			sub = MetaLifecycle
		}
		e.Meta = &MetaPayload{Subtype: sub}
	case "":
		// No post_type: this is a response frame.
		e.Kind = KindResponse
		status := StatusFailed
		switch f.Status {
		case "ok":
			status = StatusOK
		case "async":
			status = StatusAccepted
		}
		var data map[string]any
		if len(f.Data) > 0 {
			_ = json.Unmarshal(f.Data, &data)
		}
		e.Response = &ResponsePayload{
			Retcode: f.Retcode,
			EchoID:  f.Echo,
			Status:  status,
			Error:   f.Wording,
			Data:    data,
		}
	default:
		return nil, fmt.Errorf("unrecognized post_type %q", f.PostType)
	}

	return e, nil
}

func messageSubtype(messageType, subType string, anonym bool) MessageSubtype {
	if messageType == "private" {
		return SubtypePrivate
	}
	if anonym {
		return SubtypeGroupAnonym
	}
	switch subType {
	case "normal":
		return SubtypeGroupNormal
	case "anonymous":
		return SubtypeGroupAnonym
	case "notice":
		return SubtypeGroupNotice
	default:
		return SubtypeGroupNormal
	}
}

func noticeSubtype(s string) NoticeSubtype {
	switch s {
	case "group_upload":
		return NoticeUpload
	case "group_admin":
		return NoticeAdminChange
	case "group_increase":
		return NoticeMemberJoin
	case "group_decrease":
		return NoticeMemberLeave
	case "group_ban":
		return NoticeBan
	case "poke":
		return NoticePoke
	case "essence":
		return NoticeEssenceAdd
	default:
		return NoticeSubtype(s)
	}
}

// decodeMessageField normalizes the message field, which the gateway may
// send either as a CQ-code-bearing raw string or as a segment array.
func decodeMessageField(raw json.RawMessage, fallbackRaw string) ([]Segment, error) {
	if len(raw) == 0 {
		if fallbackRaw == "" {
			return nil, nil
		}
		return ParseCQString(fallbackRaw), nil
	}

	var asArray []segmentFrame
	if err := json.Unmarshal(raw, &asArray); err == nil {
		segs := make([]Segment, len(asArray))
		for i, s := range asArray {
			segs[i] = Segment{Type: SegmentType(s.Type), Data: s.Data}
		}
		return segs, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return ParseCQString(asString), nil
	}

	return nil, fmt.Errorf("unrecognized message field shape")
}

// EncodeAction serializes an Action to the gateway's outbound frame shape.
func EncodeAction(a *Action) ([]byte, error) {
	out := map[string]any{
		"action": string(a.Type),
		"params": a.Params,
	}
	if a.EchoID != "" {
		out["echo"] = a.EchoID
	}
	return json.Marshal(out)
}
