package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	id, ok := UserIDFromCtx(context.Background())
	require.False(t, ok)
	require.Zero(t, id)

	ctx := WithUserID(context.Background(), 5)
	id, ok = UserIDFromCtx(ctx)
	require.True(t, ok)
	require.Equal(t, int64(5), id)

	bad := context.WithValue(context.Background(), userIDKey, "5")
	_, ok = UserIDFromCtx(bad)
	require.False(t, ok)

	_, ok = UserIDFromCtx(WithUserID(context.Background(), 0))
	require.False(t, ok)
}
