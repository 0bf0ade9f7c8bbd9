package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/openclip/videobot/internal/domain/model"
	apperrors "github.com/openclip/videobot/internal/errors"
	"github.com/openclip/videobot/internal/testutil"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	return NewSessionStore(client, SessionStoreOptions{Prefix: "test:session:"})
}

func TestSessionStoreSaveGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := testutil.NewSession(42).
		InState(model.SessionStateCollectingPhotos).
		WithPhotos("p1", "p2").
		Build()

	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.State, got.State)
	assert.Equal(t, sess.Photos, got.Photos)
}

func TestSessionStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 9999)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testutil.NewSession(42).Build()))
	require.NoError(t, store.Delete(ctx, 42))

	_, err := store.Get(ctx, 42)
	assert.True(t, apperrors.IsNotFound(err))

	// Deleting again is fine.
	require.NoError(t, store.Delete(ctx, 42))
}

func TestSessionStoreUpdateCreatesFreshSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testutil.TestTime()

	got, err := store.Update(ctx, 42, now, func(sess model.Session) (model.Session, error) {
		assert.Equal(t, model.SessionStateIdle, sess.State)
		sess.State = model.SessionStateCollectingPhotos
		sess.Photos = append(sess.Photos, "p1")
		return sess, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateCollectingPhotos, got.State)

	persisted, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, persisted.Photos)
}

func TestSessionStoreUpdatePropagatesFnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testutil.NewSession(42).Build()))

	wantErr := apperrors.InvalidTransitionf("nope")
	_, err := store.Update(ctx, 42, testutil.TestTime(), func(sess model.Session) (model.Session, error) {
		return sess, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// Session is untouched.
	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateIdle, got.State)
}

func TestSessionStoreUpdateConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := testutil.TestTime()

	const writers = 8
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := store.Update(ctx, 42, now, func(sess model.Session) (model.Session, error) {
				sess.State = model.SessionStateCollectingPhotos
				sess.Photos = append(sess.Photos, "p")
				return sess, nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	// Every successful update observed the previous one.
	assert.Len(t, got.Photos, writers)
}

func TestSessionStoreTTL(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("close redis client: %v", err)
		}
	})
	store := NewSessionStore(client, SessionStoreOptions{
		Prefix: "test:session:",
		TTL:    time.Hour,
	})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testutil.NewSession(42).Build()))

	ttl, err := client.TTL(ctx, "test:session:42").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)
}
