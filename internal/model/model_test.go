package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetaValue_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []any{
		"plain",
		"",
		`{"looks":"serialized"}`,
		`"quoted"`,
		map[string]any{"a": "b", "n": []any{"x", "y"}},
		[]any{"one", "two"},
	}
	for _, v := range cases {
		s, err := SerializeMeta(v)
		require.NoError(t, err)
		require.Equal(t, v, UnserializeMeta(s), "stored as %q", s)
	}
}

func TestMetaValue_NumbersKeepPrecision(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want any
	}{
		{[]any{1, 2.5, int64(9007199254740993)}, []any{json.Number("1"), json.Number("2.5"), json.Number("9007199254740993")}},
		{map[string]any{"id": uint64(18446744073709551615)}, map[string]any{"id": json.Number("18446744073709551615")}},
		{map[string]any{"nested": []any{int64(-42)}}, map[string]any{"nested": []any{json.Number("-42")}}},
	}
	for _, c := range cases {
		s, err := SerializeMeta(c.in)
		require.NoError(t, err)
		got := UnserializeMeta(s)
		require.Equal(t, c.want, got, "stored as %q", s)

		again, err := SerializeMeta(got)
		require.NoError(t, err)
		require.Equal(t, s, again)
	}
}

func TestMetaValue_Scalars(t *testing.T) {
	t.Parallel()

	for in, want := range map[any]string{true: "1", false: "", 42: "42", int64(-3): "-3", 1.5: "1.5"} {
		got, err := SerializeMeta(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	s, err := SerializeMeta(nil)
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestMetaValue_InvalidJSONStaysString(t *testing.T) {
	require.Equal(t, "{not json}", UnserializeMeta("{not json}"))
	require.Equal(t, "[", UnserializeMeta("["))
}

func TestSameMetaValue(t *testing.T) {
	require.True(t, SameMetaValue("5", 5))
	require.True(t, SameMetaValue(map[string]any{"a": 1}, map[string]any{"a": 1}))
	require.False(t, SameMetaValue("a", "b"))
}

func TestSanitizeSlug(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Hello World":        "hello-world",
		"  Crème brûlée!! ":  "creme-brulee",
		"Go 1.24 -- release": "go-1-24-release",
		"snake_case stays":   "snake_case-stays",
		"!!!":                "",
	}
	for in, want := range cases {
		require.Equal(t, want, SanitizeSlug(in), in)
	}
}

func TestUniqueSlug(t *testing.T) {
	used := map[string]bool{"hello": true, "hello-2": true}
	got, err := UniqueSlug("hello", func(s string) (bool, error) { return used[s], nil })
	require.NoError(t, err)
	require.Equal(t, "hello-3", got)
}

func TestLoad_WhitelistAndWeakTypes(t *testing.T) {
	p, err := NewPost(map[string]any{
		"ID":          "12",
		"post_title":  "Hello",
		"post_status": "draft",
		"post_date":   "2024-05-01 10:20:30",
		"menu_order":  "3",
		"unknown_key": "ignored",
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), p.ID)
	require.Equal(t, "Hello", p.Title)
	require.Equal(t, 3, p.MenuOrder)
	require.Equal(t, time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC), p.Date)
	require.True(t, p.Exists())
}

func TestLoad_UserPasswordIsPlaintextInput(t *testing.T) {
	u, err := NewUser(map[string]any{"user_login": "alice", "user_pass": "secret", "roles": []string{"editor"}})
	require.NoError(t, err)
	require.Equal(t, "secret", u.Password)
	require.Empty(t, u.PassHash)
	require.False(t, u.Exists())
	require.True(t, u.HasRole("editor"))
}

func TestLoad_Log(t *testing.T) {
	l, err := NewLog(map[string]any{"action": "login", "object_type": "user", "object_id": 5, "success": true})
	require.NoError(t, err)
	require.Equal(t, ActionLogin, l.Action)
	require.Equal(t, ObjectUser, l.ObjectType)
	require.Equal(t, int64(5), l.ObjectID)
	require.True(t, l.Success)
}

func TestPostChanges(t *testing.T) {
	before := &Post{ID: 1, Title: "a", Status: StatusDraft, Password: "x"}
	after := &Post{ID: 1, Title: "b", Status: StatusDraft}
	ch := after.Changes(before)
	require.Len(t, ch, 2)
	require.Equal(t, FieldChange{Old: "a", New: "b"}, ch["post_title"])
	require.Equal(t, FieldChange{Old: true, New: false}, ch["post_password"])
	require.Empty(t, after.Changes(nil))
}

func TestObjectType_HasMeta(t *testing.T) {
	require.True(t, ObjectPost.HasMeta())
	require.False(t, ObjectRole.HasMeta())
}
