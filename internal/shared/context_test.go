package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := ContextWithActor(context.Background(), Actor{ID: "u-7", Role: "manager"})

	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "u-7", actor.ID)
	require.Equal(t, "manager", actor.Role)
}

func TestActorMissingFromContext(t *testing.T) {
	actor, ok := ActorFromContext(context.Background())
	require.False(t, ok)
	require.Empty(t, actor.ID)
	require.Empty(t, actor.Role)
}
