// Package uploads hands sellers signed URLs for listing images and videos.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// Kind is the media slot on a listing.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var allowedExt = map[Kind]map[string]bool{
	KindImage: {".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true},
	KindVideo: {".mp4": true, ".webm": true, ".mov": true},
}

var (
	ErrBadKind     = errors.New("kind must be image or video")
	ErrBadFileName = errors.New("file name is required and must have a supported extension")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Signer issues signed upload URLs for an object store.
type Signer interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
	PublicURL(bucket, path string) string
}

type Service struct {
	Signer Signer
	Bucket string
	Now    func() time.Time
}

// UploadResult is returned to the browser: PUT the file to UploadURL, then
// send PublicURL as the listing's imageUrl or videoUrl.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
	Kind      Kind   `json:"kind"`
}

// SignListingMedia places the object under the seller's folder so sellers
// cannot overwrite each other's files.
func (s *Service) SignListingMedia(ctx context.Context, sellerID string, kind Kind, fileName string) (*UploadResult, error) {
	exts, ok := allowedExt[kind]
	if !ok {
		return nil, ErrBadKind
	}
	name := sanitize(fileName)
	if name == "" || !exts[strings.ToLower(path.Ext(name))] {
		return nil, ErrBadFileName
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	objectPath := fmt.Sprintf("%s/%s/%d-%s", sellerID, kind, now().UnixMilli(), name)

	signed, err := s.Signer.CreateSignedUploadURL(ctx, s.Bucket, objectPath)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signed,
		PublicURL: s.Signer.PublicURL(s.Bucket, objectPath),
		Path:      objectPath,
		Kind:      kind,
	}, nil
}

func sanitize(fileName string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "_")
}
