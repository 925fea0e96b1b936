package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore removes evidence blobs that were uploaded directly to
// Cloudinary via the signed-upload endpoint. Evidence paths for this store
// are Cloudinary public IDs, optionally carrying a file extension.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStore reads credentials from CLOUDINARY_URL
func NewCloudinaryStore() (*CloudinaryStore, error) {
	cld, err := cloudinary.New()
	if err != nil {
		return nil, err
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Delete destroys the blob behind the given public ID
func (s *CloudinaryStore) Delete(ctx context.Context, path string) error {
	publicID := strings.TrimSuffix(path, filepath.Ext(path))
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}
