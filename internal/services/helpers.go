package services

import (
	"context"
	"strings"

	"furnistore/internal/common"

	"github.com/goliatone/go-slug"
	"go.uber.org/zap"
)

// makeSlug normalizes the explicit slug, or derives one from name.
func makeSlug(op, explicit, name string) (string, error) {
	source := strings.TrimSpace(explicit)
	if source == "" {
		source = name
	}
	s, err := slug.Normalize(source)
	if err != nil || s == "" || !slug.IsValid(s) {
		return "", common.Invalid(op, "slug must contain letters or digits")
	}
	return s, nil
}

// resolveImageURL presigns path. Storage failures degrade to an empty URL so
// a listing never fails because of an image.
func resolveImageURL(ctx context.Context, storage ImageStorage, logger *zap.Logger, path *string) string {
	if storage == nil || path == nil || *path == "" {
		return ""
	}
	u, err := storage.PresignedURL(ctx, *path)
	if err != nil {
		logger.Warn("failed to presign image", zap.String("path", *path), zap.Error(err))
		return ""
	}
	return u
}

// wrapWrite keeps not-found, conflict and validation errors recognisable to
// handlers and wraps everything else.
func wrapWrite(op, message string, err error) error {
	if common.IsNotFound(err) || common.IsConflict(err) || common.IsValidation(err) {
		return err
	}
	return common.Wrap(op, message, err)
}
