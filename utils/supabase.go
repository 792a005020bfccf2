package utils

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// ReportUploader publishes generated reports to a Supabase Storage bucket.
type ReportUploader struct {
	client *storage.Client
	bucket string
}

func NewReportUploader(supabaseURL, supabaseKey, bucket string) *ReportUploader {
	base := strings.TrimRight(supabaseURL, "/")
	return &ReportUploader{
		client: storage.NewClient(base+"/storage/v1", supabaseKey, nil),
		bucket: bucket,
	}
}

// Upload stores data under folder/name, replacing any previous object, and
// returns its public URL.
func (u *ReportUploader) Upload(folder, name, contentType string, data []byte) (string, error) {
	objectPath := name
	if folder != "" {
		objectPath = path.Join(folder, name)
	}

	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := u.client.UploadFile(u.bucket, objectPath, bytes.NewReader(data), options); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}

	publicURL := u.client.GetPublicUrl(u.bucket, objectPath)
	return publicURL.SignedURL, nil
}
