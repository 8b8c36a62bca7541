package guest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type likeOp int

const (
	likeOpLike likeOp = iota
	likeOpUnlike
	likeOpToggle
)

var (
	errAlreadyLiked = errors.New("photo already liked")
	errNotLiked     = errors.New("photo not liked")
)

func (s *Service) Like(ctx context.Context, actor types.Actor, photoID string) (*LikeResult, error) {
	return s.changeLike(ctx, actor, photoID, likeOpLike)
}

func (s *Service) Unlike(ctx context.Context, actor types.Actor, photoID string) (*LikeResult, error) {
	return s.changeLike(ctx, actor, photoID, likeOpUnlike)
}

func (s *Service) Toggle(ctx context.Context, actor types.Actor, photoID string) (*LikeResult, error) {
	return s.changeLike(ctx, actor, photoID, likeOpToggle)
}

// changeLike keeps photo.like_count equal to the number of photo_like rows.
func (s *Service) changeLike(ctx context.Context, actor types.Actor, photoID string, op likeOp) (*LikeResult, error) {
	var photo models.Photo
	if err := s.db.WithContext(ctx).Where("id = ?", photoID).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Photo not found")
		}
		return nil, fmt.Errorf("failed to load photo: %w", err)
	}
	ev, err := s.loadEvent(ctx, photo.EventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, ev, actor); err != nil {
		return nil, err
	}

	res := &LikeResult{PhotoID: photo.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.PhotoLike{}).Where("photo_id = ? AND guest_id = ?", photo.ID, actor.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to load like: %w", err)
		}
		like := n == 0
		switch op {
		case likeOpLike:
			if !like {
				return errAlreadyLiked
			}
		case likeOpUnlike:
			if like {
				return errNotLiked
			}
		}

		if like {
			if err := tx.Create(&models.PhotoLike{PhotoID: photo.ID, GuestID: actor.ID, CreatedAt: time.Now().UTC()}).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return errAlreadyLiked
				}
				return fmt.Errorf("failed to save like: %w", err)
			}
			if err := tx.Model(&models.Photo{}).Where("id = ?", photo.ID).
				Update("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to count like: %w", err)
			}
		} else {
			del := tx.Where("photo_id = ? AND guest_id = ?", photo.ID, actor.ID).Delete(&models.PhotoLike{})
			if del.Error != nil {
				return fmt.Errorf("failed to remove like: %w", del.Error)
			}
			if del.RowsAffected == 0 {
				return errNotLiked
			}
			if err := tx.Model(&models.Photo{}).Where("id = ? AND like_count > 0", photo.ID).
				Update("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
				return fmt.Errorf("failed to count unlike: %w", err)
			}
		}
		res.Liked = like
		return tx.Model(&models.Photo{}).Where("id = ?", photo.ID).Pluck("like_count", &res.LikeCount).Error
	})
	switch {
	case errors.Is(err, errAlreadyLiked):
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "Photo already liked")
	case errors.Is(err, errNotLiked):
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "Photo not liked")
	case err != nil:
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Debugw("photo like changed", "photo_id", photo.ID, "guest_id", actor.ID, "liked", res.Liked)
	return res, nil
}
