package media

import (
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

// CloudinaryResolver builds delivery URLs for images stored as Cloudinary public ids
type CloudinaryResolver struct {
	cld *cloudinary.Cloudinary
	log *zap.Logger
}

// NewCloudinaryResolver creates a resolver. Without a cloud name, references
// are returned untouched.
func NewCloudinaryResolver(cloudName, apiKey, apiSecret string, log *zap.Logger) (*CloudinaryResolver, error) {
	r := &CloudinaryResolver{log: log}
	if cloudName == "" {
		return r, nil
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	r.cld = cld
	return r, nil
}

// ResolveImageURL implements domain.ImageResolver
func (r *CloudinaryResolver) ResolveImageURL(ref string) string {
	if ref == "" || r.cld == nil {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	asset, err := r.cld.Image(ref)
	if err != nil {
		r.log.Warn("invalid image reference", zap.String("ref", ref), zap.Error(err))
		return ref
	}
	url, err := asset.String()
	if err != nil {
		r.log.Warn("failed to build image url", zap.String("ref", ref), zap.Error(err))
		return ref
	}
	return url
}

var _ domain.ImageResolver = (*CloudinaryResolver)(nil)
