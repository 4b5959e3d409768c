package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rctrack/pkg/domain-errors"
)

func TestParseEntryID(t *testing.T) {
	t.Run("rejects whitespace only", func(t *testing.T) {
		_, err := ParseEntryID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEntryID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEntryID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID with surrounding whitespace", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseEntryID("  " + validUUID.String() + "\n")
		require.NoError(t, err)
		assert.Equal(t, EntryID(validUUID), id)
	})
}

func TestParseUserID(t *testing.T) {
	t.Run("accepts issuer formats", func(t *testing.T) {
		for _, raw := range []string{
			"64f1a2b3c4d5e6f708192a3b",
			"550e8400-e29b-41d4-a716-446655440000",
			"auth0|dealer-17",
		} {
			id, err := ParseUserID(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, raw, id.String())
			assert.False(t, id.IsNil())
		}
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		id, err := ParseUserID(" 64f1a2b3c4d5e6f708192a3b\n")
		require.NoError(t, err)
		assert.Equal(t, UserID("64f1a2b3c4d5e6f708192a3b"), id)
	})

	for name, raw := range map[string]string{
		"empty":            "",
		"whitespace only":  "  ",
		"inner whitespace": "dealer 17",
		"control char":     "dealer\x0017",
		"too long":         strings.Repeat("a", maxUserIDLength+1),
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ParseUserID(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestZeroIDs(t *testing.T) {
	assert.True(t, UserID("").IsNil())
	assert.False(t, NewEntryID().IsNil())
	assert.True(t, EntryID{}.IsNil())
}

func TestIDJSON(t *testing.T) {
	type doc struct {
		ID        EntryID `json:"id"`
		CreatedBy UserID  `json:"createdBy"`
	}
	in := doc{ID: NewEntryID(), CreatedBy: UserID("64f1a2b3c4d5e6f708192a3b")}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"`+in.ID.String()+`"`)
	assert.Contains(t, string(raw), `"createdBy":"64f1a2b3c4d5e6f708192a3b"`)

	var out doc
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":   RoleAdmin,
		"ADMIN":   RoleAdmin,
		"staff":   RoleStaff,
		"user":    RoleStaff,
		" user  ": RoleStaff,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "root", "superadmin"} {
		_, err := ParseRole(bad)
		require.Error(t, err, bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestPrincipalIsAdmin(t *testing.T) {
	assert.True(t, Principal{Role: RoleAdmin}.IsAdmin())
	assert.False(t, Principal{Role: RoleStaff}.IsAdmin())
	assert.False(t, Principal{}.IsAdmin())
}
