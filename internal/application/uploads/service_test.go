package uploads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	bucket, path string
	err          error
}

func (f *fakeSigner) CreateSignedUploadURL(_ context.Context, bucket, p string) (string, error) {
	f.bucket, f.path = bucket, p
	return "https://signed/" + p, f.err
}

func (f *fakeSigner) PublicURL(bucket, p string) string { return "https://public/" + bucket + "/" + p }

func TestSignListingMedia(t *testing.T) {
	signer := &fakeSigner{}
	s := &Service{Signer: signer, Bucket: "listing-media", Now: func() time.Time { return time.UnixMilli(1700000000000) }}

	res, err := s.SignListingMedia(context.Background(), "seller-1", KindImage, "../../My Forest!.PNG")
	require.NoError(t, err)
	assert.Equal(t, "seller-1/image/1700000000000-My_Forest_.PNG", res.Path)
	assert.Equal(t, "listing-media", signer.bucket)
	assert.Equal(t, "https://public/listing-media/"+res.Path, res.PublicURL)
	assert.Equal(t, KindImage, res.Kind)
}

func TestSignListingMedia_Rejects(t *testing.T) {
	s := &Service{Signer: &fakeSigner{}, Bucket: "b"}
	ctx := context.Background()

	_, err := s.SignListingMedia(ctx, "s", "audio", "a.mp3")
	assert.ErrorIs(t, err, ErrBadKind)
	_, err = s.SignListingMedia(ctx, "s", KindVideo, "clip.png")
	assert.ErrorIs(t, err, ErrBadFileName)
	_, err = s.SignListingMedia(ctx, "s", KindImage, "")
	assert.ErrorIs(t, err, ErrBadFileName)

	boom := errors.New("boom")
	s.Signer = &fakeSigner{err: boom}
	_, err = s.SignListingMedia(ctx, "s", KindVideo, "clip.mp4")
	assert.ErrorIs(t, err, boom)
}
