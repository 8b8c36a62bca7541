package guest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

func TestUploadPhoto_StoresBlobAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, withPerGuest(3))
	g := env.join(t, ev, "g1")

	p, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p.ObjectKey, "events/"+ev.ID+"/photos/"+p.ID+"/photo-"))
	require.True(t, strings.HasSuffix(p.ObjectKey, ".png"))
	require.Equal(t, "https://cdn.test/"+p.ObjectKey, p.PhotoURL)
	require.Equal(t, "g1", p.GuestName)
	require.True(t, env.store.Has(p.ObjectKey))

	require.Equal(t, 1, env.reload(t, ev.ID).PhotoCount)
	var row models.Guest
	require.NoError(t, env.db.First(&row, "event_id = ? AND guest_id = ?", ev.ID, g.ID).Error)
	require.Equal(t, 1, row.PhotosUploaded)

	// the owner is bound by the pool only and never gets a guest row
	_, err = env.svc.UploadPhoto(context.Background(), owner, ev.ID, photo(), "")
	require.NoError(t, err)
	require.Equal(t, 2, env.reload(t, ev.ID).PhotoCount)
}

func TestUploadPhoto_PerGuestCap(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, withPerGuest(2))
	g := env.join(t, ev, "g1")

	for i := 0; i < 2; i++ {
		_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
		require.NoError(t, err)
	}
	_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	e := requireCode(t, err, pkgerrors.CodeQuotaExceeded)
	require.Equal(t, "photos_per_guest", e.Details().(map[string]any)["limit"])
	require.Equal(t, 2, env.reload(t, ev.ID).PhotoCount)
	require.Equal(t, 2, env.store.Len())
}

func TestUploadPhoto_PoolFull(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, withPhotoPool(1))
	g := env.join(t, ev, "g1")

	_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	require.NoError(t, err)
	_, err = env.svc.UploadPhoto(context.Background(), owner, ev.ID, photo(), "")
	e := requireCode(t, err, pkgerrors.CodeQuotaExceeded)
	require.Equal(t, map[string]any{"limit": "photo_pool", "current": 1, "allowed": 1}, e.Details())
}

func TestUploadPhoto_PrecheckOrder(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, withPhotoPool(1))
	stranger := types.Actor{ID: "stranger"}

	_, err := env.svc.UploadPhoto(context.Background(), stranger, "missing", photo(), "")
	requireCode(t, err, pkgerrors.CodeNotFound)

	// a stranger gets FORBIDDEN only once time and quota checks pass
	_, err = env.svc.UploadPhoto(context.Background(), stranger, ev.ID, photo(), "")
	requireCode(t, err, pkgerrors.CodeForbidden)

	require.NoError(t, env.db.Model(&models.Event{}).Where("id = ?", ev.ID).Update("photo_count", 1).Error)
	_, err = env.svc.UploadPhoto(context.Background(), stranger, ev.ID, photo(), "")
	requireCode(t, err, pkgerrors.CodeQuotaExceeded)

	env.now = afterEvent
	_, err = env.svc.UploadPhoto(context.Background(), stranger, ev.ID, photo(), "")
	requireReason(t, err, "event_ended")

	_, err = env.svc.UploadPhoto(context.Background(), owner, ev.ID, nil, "")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUploadPhoto_StorageFailureCountsNothing(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t)
	g := env.join(t, ev, "g1")
	env.store.FailPut = errors.New("bucket unavailable")

	_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	require.Error(t, err)
	require.Zero(t, env.reload(t, ev.ID).PhotoCount)
}

func TestStorageExpiryIsIndependentOfEventEnd(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t)
	g := env.join(t, ev, "g1")
	_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	require.NoError(t, err)

	env.now = afterEvent
	_, err = env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	requireReason(t, err, "event_ended")
	page, err := env.svc.ListPhotos(context.Background(), g, ev.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	env.now = afterStorage
	_, err = env.svc.ListPhotos(context.Background(), g, ev.ID, pagination.Params{})
	requireReason(t, err, "storage_expired")
	_, err = env.svc.GuestPhotos(context.Background(), g, ev.ID)
	requireReason(t, err, "storage_expired")
}

func TestListPhotos_AccessAndPaging(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, withPrivateGallery())
	g := env.join(t, ev, "g1")
	for i := 0; i < 3; i++ {
		env.now = env.now.Add(time.Second)
		_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
		require.NoError(t, err)
	}

	_, err := env.svc.ListPhotos(context.Background(), g, ev.ID, pagination.Params{})
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = env.svc.ListPhotos(context.Background(), types.Actor{ID: "stranger"}, ev.ID, pagination.Params{})
	requireCode(t, err, pkgerrors.CodeForbidden)

	page, err := env.svc.ListPhotos(context.Background(), owner, ev.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	_, err = env.svc.Like(context.Background(), owner, page.Items[0].ID)
	require.NoError(t, err)

	page, err = env.svc.ListPhotos(context.Background(), owner, ev.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.True(t, page.Items[0].IsLiked)
	require.False(t, page.Items[1].IsLiked)

	rest, err := env.svc.ListPhotos(context.Background(), owner, ev.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.Empty(t, rest.NextCursor)
}

func TestGuestPhotos_Remaining(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t, withPerGuest(3))
	g := env.join(t, ev, "g1")
	_, err := env.svc.UploadPhoto(context.Background(), g, ev.ID, photo(), "")
	require.NoError(t, err)
	_, err = env.svc.UploadPhoto(context.Background(), owner, ev.ID, photo(), "")
	require.NoError(t, err)

	mine, err := env.svc.GuestPhotos(context.Background(), g, ev.ID)
	require.NoError(t, err)
	require.Len(t, mine.Photos, 1)
	require.Equal(t, 1, mine.PhotosUploaded)
	require.Equal(t, 2, mine.Remaining)

	mine, err = env.svc.GuestPhotos(context.Background(), owner, ev.ID)
	require.NoError(t, err)
	require.Len(t, mine.Photos, 1)
	require.Equal(t, 98, mine.Remaining)
}

func TestLikes_CountMatchesRows(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t)
	g1 := env.join(t, ev, "g1")
	g2 := env.join(t, ev, "g2")
	p, err := env.svc.UploadPhoto(context.Background(), g1, ev.ID, photo(), "")
	require.NoError(t, err)
	ctx := context.Background()

	requireConsistent := func(want int) {
		t.Helper()
		var rows int64
		require.NoError(t, env.db.Model(&models.PhotoLike{}).Where("photo_id = ?", p.ID).Count(&rows).Error)
		var stored models.Photo
		require.NoError(t, env.db.First(&stored, "id = ?", p.ID).Error)
		require.Equal(t, want, int(rows))
		require.Equal(t, want, stored.LikeCount)
	}

	res, err := env.svc.Like(ctx, g1, p.ID)
	require.NoError(t, err)
	require.Equal(t, &LikeResult{PhotoID: p.ID, Liked: true, LikeCount: 1}, res)

	_, err = env.svc.Like(ctx, g1, p.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
	requireConsistent(1)

	res, err = env.svc.Toggle(ctx, g2, p.ID)
	require.NoError(t, err)
	require.True(t, res.Liked)
	require.Equal(t, 2, res.LikeCount)

	res, err = env.svc.Toggle(ctx, g1, p.ID)
	require.NoError(t, err)
	require.False(t, res.Liked)
	require.Equal(t, 1, res.LikeCount)

	_, err = env.svc.Unlike(ctx, g1, p.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	res, err = env.svc.Unlike(ctx, g2, p.ID)
	require.NoError(t, err)
	require.Zero(t, res.LikeCount)
	requireConsistent(0)

	_, err = env.svc.Like(ctx, types.Actor{ID: "stranger"}, p.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = env.svc.Like(ctx, g1, "missing")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestLikes_ConcurrentToggles(t *testing.T) {
	env := newTestEnv(t)
	ev := env.seedEvent(t)
	p, err := env.svc.UploadPhoto(context.Background(), owner, ev.ID, photo(), "")
	require.NoError(t, err)
	actors := make([]types.Actor, 8)
	for i := range actors {
		actors[i] = env.join(t, ev, fmt.Sprintf("g%d", i))
	}

	done := make(chan error, len(actors)*3)
	for _, a := range actors {
		for j := 0; j < 3; j++ {
			go func(a types.Actor) {
				_, err := env.svc.Toggle(context.Background(), a, p.ID)
				done <- err
			}(a)
		}
	}
	for i := 0; i < len(actors)*3; i++ {
		require.NoError(t, <-done)
	}

	// three toggles each leave every actor liking the photo
	var stored models.Photo
	require.NoError(t, env.db.First(&stored, "id = ?", p.ID).Error)
	require.Equal(t, len(actors), stored.LikeCount)
}
