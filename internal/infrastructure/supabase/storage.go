package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Storage signs uploads against Supabase Storage. It needs the service_role key,
// the anon key used for PostgREST is rejected.
type Storage struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

// CreateSignedUploadURL returns a one-hour URL the browser can PUT the object to.
func (s *Storage) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if s.BaseURL == "" {
		return "", fmt.Errorf("supabase storage: SUPABASE_URL is not set")
	}
	if s.SecretKey == "" {
		return "", fmt.Errorf("supabase storage: SUPABASE_SECRET_KEY is not set")
	}
	if s.Client == nil {
		s.Client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(s.BaseURL, "/")
	endpoint := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, path)
	payload, _ := json.Marshal(map[string]any{"expiresIn": 3600, "upsert": false})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", s.SecretKey)
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase storage request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", (&Response{StatusCode: resp.StatusCode, Body: raw}).Error()
	}

	body := gjson.ParseBytes(raw)
	for _, key := range []string{"signedUrl", "signed_url"} {
		if v := body.Get(key).String(); v != "" {
			return v, nil
		}
	}
	if rel := body.Get("url").String(); rel != "" {
		if !strings.HasPrefix(rel, "/") {
			rel = "/" + rel
		}
		if !strings.HasPrefix(rel, "/storage/v1") {
			rel = "/storage/v1" + rel
		}
		return base + rel, nil
	}
	return "", fmt.Errorf("supabase storage returned no signed URL")
}

// PublicURL is where an object in a public bucket can be read.
func (s *Storage) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(s.BaseURL, "/"), bucket, path)
}
