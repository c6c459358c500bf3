package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap_ClassifiesSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   error
		code Code
	}{
		{ErrNotFound, CodeNotFound},
		{fmt.Errorf("posts: %w", ErrAlreadyExists), CodeAlreadyExists},
		{context.Canceled, CodeCanceled},
		{errors.New("connection reset"), CodeStorage},
	}
	for _, c := range cases {
		err := Wrap("op", c.in)
		require.Equal(t, c.code, CodeOf(err), c.in.Error())
		require.ErrorIs(t, err, c.in)
	}
}

func TestWrap_Nil(t *testing.T) {
	require.NoError(t, Wrap("op", nil))
	require.Equal(t, Code(""), CodeOf(nil))
}

func TestWrap_KeepsNormalizedError(t *testing.T) {
	orig := New("post.create", CodeAlreadyPersisted, "post %d already stored", 7)
	got := Wrap("outer", orig)
	require.Same(t, orig, got)
	require.ErrorIs(t, got, ErrAlreadyPersisted)
	require.Equal(t, "post.create: post 7 already stored", got.Error())
}

func TestError_MessageIncludesCause(t *testing.T) {
	e := &Error{Code: CodeStorage, Op: "meta.add", Message: "insert failed", Err: errors.New("boom")}
	require.Equal(t, "meta.add: insert failed: boom", e.Error())
	require.False(t, errors.Is(e, ErrNotFound))
}
