package auth

import (
	"testing"

	"github.com/ashlock/gatekit/internal/protocol"
)

func testChecker() *Checker {
	return NewChecker(Config{
		OwnerID:       1,
		SuperUsers:    []int64{2},
		WhiteList:     []int64{3},
		BlackList:     []int64{4},
		AllowedGroups: []int64{100},
	})
}

func msgEvent(userID, groupID int64, anonym bool) *protocol.Event {
	return &protocol.Event{
		Kind: protocol.KindMessage,
		Message: &protocol.MessagePayload{
			Sender:  protocol.Sender{UserID: userID, Anonymous: anonym},
			GroupID: groupID,
			Subtype: func() protocol.MessageSubtype {
				if anonym {
					return protocol.SubtypeGroupAnonym
				}
				if groupID != 0 {
					return protocol.SubtypeGroupNormal
				}
				return protocol.SubtypePrivate
			}(),
		},
	}
}

func TestLevel(t *testing.T) {
	c := testChecker()
	tests := []struct {
		name string
		e    *protocol.Event
		want UserLevel
	}{
		{"owner", msgEvent(1, 0, false), Owner},
		{"superuser", msgEvent(2, 0, false), SU},
		{"white", msgEvent(3, 0, false), White},
		{"black", msgEvent(4, 0, false), Black},
		{"default user", msgEvent(5, 0, false), User},
		{"group anonym absorbs to black", msgEvent(1, 100, true), Black},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Level(tt.e); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckDeniesUngrantedGroup(t *testing.T) {
	c := testChecker()
	e := msgEvent(1, 999, false)
	if c.Check(User, e) {
		t.Error("Check() = true for a group outside the allowed list, want false")
	}
}

func TestCheckAllowsGrantedGroup(t *testing.T) {
	c := testChecker()
	e := msgEvent(1, 100, false)
	if !c.Check(User, e) {
		t.Error("Check() = false for an owner in an allowed group, want true")
	}
}

func TestCheckBlackAlwaysDenied(t *testing.T) {
	c := testChecker()
	e := msgEvent(4, 0, false)
	if c.Check(Black, e) {
		t.Error("Check() = true for a blacklisted sender, want false (BLACK is absorbing)")
	}
}

func TestNoticeChecker(t *testing.T) {
	c := NewNoticeChecker(Config{OwnerID: 1, SuperUsers: []int64{2}, BlackList: []int64{4}})
	if !c.Check(SU, 1) {
		t.Error("owner should satisfy SU threshold")
	}
	if c.Check(User, 4) {
		t.Error("blacklisted id should never pass")
	}
}
