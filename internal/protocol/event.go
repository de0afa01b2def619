// Package protocol defines the wire-independent event and action model
// the core runtime exchanges with a message gateway: Event values decoded
// from inbound frames, Action values serialized to outbound frames, and
// the message-segment and CQ-escape helpers shared by both.
package protocol

import "time"

// Kind identifies which payload variant an Event carries.
type Kind int

const (
	KindMessage Kind = iota
	KindNotice
	KindRequest
	KindMeta
	KindKernel
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindNotice:
		return "notice"
	case KindRequest:
		return "request"
	case KindMeta:
		return "meta"
	case KindKernel:
		return "kernel"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// MessageSubtype distinguishes the conversational shape of a message event.
type MessageSubtype string

const (
	SubtypePrivate      MessageSubtype = "private"
	SubtypeGroupNormal   MessageSubtype = "group_normal"
	SubtypeGroupAnonym   MessageSubtype = "group_anonym"
	SubtypeGroupSelf     MessageSubtype = "group_self"
	SubtypeGroupNotice   MessageSubtype = "group_notice"
	SubtypeGroupTemp     MessageSubtype = "group_temp"
)

// Sender describes who originated a message event.
type Sender struct {
	UserID    int64
	Nickname  string
	GroupRole string // empty outside groups: "owner", "admin", "member", ...
	Anonymous bool
}

// MessagePayload is the payload of a Kind == KindMessage event.
type MessagePayload struct {
	MessageID int64
	Segments  []Segment
	Text      string // flattened view: Text and Face segments only
	Sender    Sender
	GroupID   int64 // 0 when not a group message
	Subtype   MessageSubtype
}

func (m *MessagePayload) IsPrivate() bool {
	return m.Subtype == SubtypePrivate
}

func (m *MessagePayload) IsGroup() bool {
	return m.GroupID != 0
}

func (m *MessagePayload) IsGroupNormal() bool {
	return m.Subtype == SubtypeGroupNormal
}

func (m *MessagePayload) IsGroupAnonym() bool {
	return m.Subtype == SubtypeGroupAnonym
}

// NoticeSubtype enumerates the notice kinds the core cares about.
type NoticeSubtype string

const (
	NoticeUpload         NoticeSubtype = "upload"
	NoticeAdminChange    NoticeSubtype = "admin_change"
	NoticeMemberJoin     NoticeSubtype = "member_join"
	NoticeMemberLeave    NoticeSubtype = "member_leave"
	NoticeBan            NoticeSubtype = "ban"
	NoticePoke           NoticeSubtype = "poke"
	NoticeEssenceAdd     NoticeSubtype = "essence_add"
	NoticeEssenceRemove  NoticeSubtype = "essence_remove"
	NoticeClientStatus   NoticeSubtype = "client_status"
)

// NoticePayload is the payload of a Kind == KindNotice event.
type NoticePayload struct {
	Subtype    NoticeSubtype
	UserID     int64 // the participant the notice is about (e.g. poke target)
	OperatorID int64
	TargetID   int64
	GroupID    int64
}

func (n *NoticePayload) IsPoke() bool {
	return n.Subtype == NoticePoke
}

// RequestSubtype distinguishes friend-add from group-add requests.
type RequestSubtype string

const (
	RequestFriendAdd RequestSubtype = "friend_add"
	RequestGroupAdd  RequestSubtype = "group_add"
)

// RequestPayload is the payload of a Kind == KindRequest event.
type RequestPayload struct {
	Subtype RequestSubtype
	UserID  int64
	GroupID int64
	Comment string
	Flag    string // required to later approve/reject
}

// MetaSubtype distinguishes lifecycle from heartbeat meta events.
type MetaSubtype string

const (
	MetaLifecycle MetaSubtype = "lifecycle"
	MetaHeartbeat MetaSubtype = "heartbeat"
)

// MetaPayload is the payload of a Kind == KindMeta event.
type MetaPayload struct {
	Subtype MetaSubtype
}

// KernelSubtype enumerates internally-generated kernel events.
type KernelSubtype string

const (
	KernelQueueFull KernelSubtype = "queue_full"
)

// KernelPayload is the payload of a Kind == KindKernel event: it is never
// decoded from a gateway frame, only synthesized internally.
type KernelPayload struct {
	Subtype KernelSubtype
	Origin  *Event // the event that caused this kernel event, if any
}

// ResponseStatus reports the outcome of a gateway action.
type ResponseStatus string

const (
	StatusOK       ResponseStatus = "ok"
	StatusAccepted ResponseStatus = "accepted"
	StatusFailed   ResponseStatus = "failed"
)

// ResponsePayload is the payload of a Kind == KindResponse event.
type ResponsePayload struct {
	Retcode int
	EchoID  string // empty when unsolicited
	Status  ResponseStatus
	Error   string
	Data    map[string]any
}

func (r *ResponsePayload) IsOK() bool {
	return r.Status == StatusOK
}

// Event is an immutable value decoded from one inbound gateway frame, or
// synthesized internally (Kernel, system echo replies).
type Event struct {
	Time   time.Time
	BotID  int64
	Kind   Kind
	Raw    string // original frame text, for logging

	Message  *MessagePayload
	Notice   *NoticePayload
	Request  *RequestPayload
	Meta     *MetaPayload
	Kernel   *KernelPayload
	Response *ResponsePayload
}

func (e *Event) IsMessage() bool  { return e.Kind == KindMessage }
func (e *Event) IsNotice() bool   { return e.Kind == KindNotice }
func (e *Event) IsRequest() bool  { return e.Kind == KindRequest }
func (e *Event) IsMeta() bool     { return e.Kind == KindMeta }
func (e *Event) IsKernel() bool   { return e.Kind == KindKernel }
func (e *Event) IsResponse() bool { return e.Kind == KindResponse }

// Text returns the flattened text view of a message event, or "" for any
// other kind.
func (e *Event) Text() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Text
}
