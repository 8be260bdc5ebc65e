// Package storage keeps a library of print files in S3-compatible object
// storage, so a sliced file can be re-sent to any printer without
// re-uploading it from the browser.
package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bambui-io/bambui/pkg/log"
	"github.com/bambui-io/bambui/pkg/options"
)

// Item describes one stored print file.
type Item struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Library is the S3-backed print file store.
type Library struct {
	client *minio.Client
	bucket string
}

// NewLibrary creates the store from configuration. The bucket is created
// on first use if it does not exist.
func NewLibrary(opts *options.S3Options) (*Library, error) {
	// Self-hosted MinIO deployments commonly run with self-signed
	// certificates.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Library{client: client, bucket: opts.BucketName}, nil
}

// EnsureBucket checks that the configured bucket exists, creating it when
// missing.
func (l *Library) EnsureBucket(ctx context.Context) error {
	exists, err := l.client.BucketExists(ctx, l.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", l.bucket, err)
	}
	if !exists {
		log.Info("Library bucket does not exist, creating", "bucket", l.bucket)
		if err := l.client.MakeBucket(ctx, l.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", l.bucket, err)
		}
	}
	return nil
}

// Put stores a print file under name.
func (l *Library) Put(ctx context.Context, name string, data []byte) error {
	_, err := l.client.PutObject(ctx, l.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("store %q: %w", name, err)
	}
	return nil
}

// Get fetches a stored print file.
func (l *Library) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", name, err)
	}
	defer obj.Close() //nolint:errcheck

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	return data, nil
}

// List returns the stored print files.
func (l *Library) List(ctx context.Context) ([]Item, error) {
	items := []Item{}
	for obj := range l.client.ListObjects(ctx, l.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list bucket %q: %w", l.bucket, obj.Err)
		}
		items = append(items, Item{Name: obj.Key, Size: obj.Size, Modified: obj.LastModified})
	}
	return items, nil
}

// Remove deletes a stored print file.
func (l *Library) Remove(ctx context.Context, name string) error {
	if err := l.client.RemoveObject(ctx, l.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}
	return nil
}
