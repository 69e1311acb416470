package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen = 36
	// HostMarker decorates the host's label in read views.
	HostMarker = " 🎖️"
)

var (
	ErrDisplayNameEmpty   = fmt.Errorf("%w: display name empty", ErrValidation)
	ErrDisplayNameTooLong = fmt.Errorf("%w: display name too long", ErrValidation)
	ErrMemberNotFound     = fmt.Errorf("%w: member", ErrNotFound)
)

type MemberID string

// Member is a player's seat in a session roster.
type Member struct {
	ID          MemberID `json:"id"`
	DisplayName string   `json:"displayName"`
	DonePlaying bool     `json:"donePlaying"`
	Score       int      `json:"score"`
}

// NormalizeDisplayName trims the name and enforces its bounds.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrDisplayNameEmpty
	}
	if len([]rune(name)) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// NewMember is a tiny helper to avoid ad-hoc struct literals in callers.
func NewMember(displayName string) (Member, error) {
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return Member{}, err
	}
	return Member{ID: MemberID(uuid.NewString()), DisplayName: name}, nil
}
