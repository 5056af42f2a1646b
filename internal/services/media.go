package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/mural-social/apiserver/internal/storage"
	"github.com/mural-social/apiserver/internal/store"
	"github.com/mural-social/apiserver/types"
)

const (
	// thumbnailWidth is the fixed thumbnail width; height follows the
	// source aspect ratio.
	thumbnailWidth = 240

	originalKeyPrefix  = "original-"
	thumbnailKeyPrefix = "thumbnail-"
)

// MediaService replaces an account's profile photo pair: it persists the
// new original and thumbnail, swaps the account's references, and
// schedules deletion of the previous pair so no orphaned files pile up.
type MediaService struct {
	accounts AccountRepository
	blobs    *storage.Storage
	janitor  Janitor
}

func NewMediaService(accounts AccountRepository, blobs *storage.Storage, janitor Janitor) *MediaService {
	return &MediaService{
		accounts: accounts,
		blobs:    blobs,
		janitor:  janitor,
	}
}

// ReplacePhoto runs the pipeline for one upload. The account's photo
// fields are only updated after both new assets are durably written; the
// old pair is deleted best-effort and never blocks the update.
func (s *MediaService) ReplacePhoto(ctx context.Context, accountID int, data []byte, filenameHint string) (types.ProfilePhoto, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return types.ProfilePhoto{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return types.ProfilePhoto{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	photo := newAssetPair(filenameHint)

	if err := s.blobs.Put(ctx, photo.Original, bytes.NewReader(data), int64(len(data)), contentTypeForKey(photo.Original)); err != nil {
		return types.ProfilePhoto{}, fmt.Errorf("persist original: %w", err)
	}

	// From here on the original is already written; a thumbnail failure
	// leaves it orphaned, so schedule it for reclamation before bailing.
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	format, err := imaging.FormatFromFilename(photo.Thumbnail)
	if err != nil {
		s.janitor.DeleteBlobs(ctx, photo.Original)
		return types.ProfilePhoto{}, fmt.Errorf("%w: %v", ErrThumbnail, err)
	}
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		s.janitor.DeleteBlobs(ctx, photo.Original)
		return types.ProfilePhoto{}, fmt.Errorf("%w: %v", ErrThumbnail, err)
	}
	if err := s.blobs.Put(ctx, photo.Thumbnail, bytes.NewReader(buf.Bytes()), int64(buf.Len()), contentTypeForKey(photo.Thumbnail)); err != nil {
		s.janitor.DeleteBlobs(ctx, photo.Original)
		return types.ProfilePhoto{}, fmt.Errorf("%w: %v", ErrThumbnail, err)
	}

	previous, err := s.swapPhoto(ctx, accountID, photo)
	if err != nil {
		// The new pair is orphaned; reclaim it in the background.
		s.janitor.DeleteBlobs(ctx, photo.Thumbnail, photo.Original)
		return types.ProfilePhoto{}, err
	}

	if previous.Custom() {
		s.janitor.DeleteBlobs(ctx, previous.Thumbnail, previous.Original)
	}
	return photo, nil
}

// swapPhoto persists the new references and returns the pair they
// replaced.
func (s *MediaService) swapPhoto(ctx context.Context, accountID int, photo types.ProfilePhoto) (types.ProfilePhoto, error) {
	for attempt := 0; ; attempt++ {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return types.ProfilePhoto{}, err
		}

		previous := account.Photo
		account.Photo = photo
		_, err = s.accounts.Update(ctx, account)
		if errors.Is(err, store.ErrVersionConflict) && attempt < maxMutationRetries {
			continue
		}
		if err != nil {
			return types.ProfilePhoto{}, err
		}
		return previous, nil
	}
}

// newAssetPair computes the stored names for one upload. Both keys share
// a random suffix so the pair can be correlated and jointly deleted; the
// thumbnail name is derived from the original name.
func newAssetPair(filenameHint string) types.ProfilePhoto {
	original := originalKeyPrefix + uuid.NewString() + assetExtension(filenameHint)
	return types.ProfilePhoto{
		Original:  original,
		Thumbnail: thumbnailKeyPrefix + strings.TrimPrefix(original, originalKeyPrefix),
	}
}

func assetExtension(filenameHint string) string {
	switch strings.ToLower(filepath.Ext(filenameHint)) {
	case ".png":
		return ".png"
	case ".gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
