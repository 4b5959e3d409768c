package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "rctrack/pkg/domain-errors"
)

// maxUserIDLength bounds principal ids taken from tokens.
const maxUserIDLength = 128

// UserID identifies an authenticated principal. It is issued by the external
// authentication collaborator and opaque to this service: a UUID, a Mongo ObjectId
// or any other printable token up to maxUserIDLength bytes.
type UserID string

// EntryID identifies an RC entry. Assigned at creation, immutable.
type EntryID uuid.UUID

// NewEntryID mints a random entry identifier.
func NewEntryID() EntryID {
	return EntryID(uuid.New())
}

// ParseUserID validates s at a trust boundary. Surrounding whitespace is dropped;
// inner whitespace and control characters are rejected.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if len(s) > maxUserIDLength || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	for _, r := range s {
		if r <= ' ' || r == 0x7f {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
		}
	}
	return UserID(s), nil
}

// ParseEntryID validates s at a trust boundary.
func ParseEntryID(s string) (EntryID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EntryID{}, dErrors.New(dErrors.CodeInvalidInput, "rc entry id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return EntryID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid rc entry id")
	}
	return EntryID(u), nil
}

func (id UserID) String() string { return string(id) }

func (id UserID) IsNil() bool { return id == "" }

func (id EntryID) String() string { return uuid.UUID(id).String() }

func (id EntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id EntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EntryID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
