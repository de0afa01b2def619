// Package auth classifies event originators into user levels and
// decides whether a required level is satisfied.
package auth

import "github.com/ashlock/gatekit/internal/protocol"

// UserLevel is an ordered authorization tier. BLACK is absorbing: no
// check ever passes for it, regardless of the required threshold.
type UserLevel int

const (
	Black UserLevel = -1
	User  UserLevel = 70
	White UserLevel = 80
	SU    UserLevel = 90
	Owner UserLevel = 100
	Sys   UserLevel = 101
)

func (l UserLevel) String() string {
	switch l {
	case Black:
		return "black"
	case User:
		return "user"
	case White:
		return "white"
	case SU:
		return "superuser"
	case Owner:
		return "owner"
	case Sys:
		return "sys"
	default:
		return "unknown"
	}
}

// Config lists the identities and groups a Checker classifies against.
type Config struct {
	OwnerID       int64
	SuperUsers    []int64
	WhiteList     []int64
	BlackList     []int64
	AllowedGroups []int64
}

// Checker classifies message-event originators into user levels and
// enforces the allowed-group restriction for group messages.
type Checker struct {
	ownerID   int64
	superUser map[int64]bool
	white     map[int64]bool
	black     map[int64]bool
	groups    map[int64]bool
}

// NewChecker builds a Checker from cfg.
func NewChecker(cfg Config) *Checker {
	return &Checker{
		ownerID:   cfg.OwnerID,
		superUser: toSet(cfg.SuperUsers),
		white:     toSet(cfg.WhiteList),
		black:     toSet(cfg.BlackList),
		groups:    toSet(cfg.AllowedGroups),
	}
}

func toSet(ids []int64) map[int64]bool {
	m := make(map[int64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// Level classifies a message event's sender.
func (c *Checker) Level(e *protocol.Event) UserLevel {
	if e.Message == nil {
		return Black
	}
	id := e.Message.Sender.UserID

	if c.black[id] {
		return Black
	}
	if e.Message.IsGroupAnonym() {
		return Black
	}
	if id == c.ownerID {
		return Owner
	}
	if c.superUser[id] {
		return SU
	}
	if c.white[id] {
		return White
	}
	return User
}

// Check reports whether e's sender satisfies required, subject to the
// allowed-group restriction for group messages.
func (c *Checker) Check(required UserLevel, e *protocol.Event) bool {
	if e.Message != nil && e.Message.IsGroup() && !c.groups[e.Message.GroupID] {
		return false
	}
	lvl := c.Level(e)
	return lvl > Black && lvl >= required
}

// NoticeChecker mirrors Checker's rules for notice events, which carry a
// bare user id rather than a full message event.
type NoticeChecker struct {
	ownerID   int64
	superUser map[int64]bool
	white     map[int64]bool
	black     map[int64]bool
}

// NewNoticeChecker builds a NoticeChecker from cfg.
func NewNoticeChecker(cfg Config) *NoticeChecker {
	return &NoticeChecker{
		ownerID:   cfg.OwnerID,
		superUser: toSet(cfg.SuperUsers),
		white:     toSet(cfg.WhiteList),
		black:     toSet(cfg.BlackList),
	}
}

// Level classifies a bare user id.
func (c *NoticeChecker) Level(userID int64) UserLevel {
	if c.black[userID] {
		return Black
	}
	if userID == c.ownerID {
		return Owner
	}
	if c.superUser[userID] {
		return SU
	}
	if c.white[userID] {
		return White
	}
	return User
}

// Check reports whether userID satisfies required.
func (c *NoticeChecker) Check(required UserLevel, userID int64) bool {
	lvl := c.Level(userID)
	return lvl > Black && lvl >= required
}
