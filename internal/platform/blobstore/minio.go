package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	objectPrefix = "xrays/"

	metaFileName  = "File-Name"
	metaPatientID = "Patient-Id"
	metaHash      = "Sha256"
)

// MinIOConfig holds the connection settings of an S3-compatible endpoint.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore keeps each blob as one object; metadata travels as object user
// metadata so no separate index is needed.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore connects to the endpoint and creates the bucket when it does
// not exist yet.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(id string) string { return objectPrefix + id }

func (s *MinIOStore) Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	data, err := prepare(&meta, content, time.Now())
	if err != nil {
		return nil, err
	}
	meta.ID = uuid.NewString()

	_, err = s.client.PutObject(ctx, s.bucket, objectKey(meta.ID), bytes.NewReader(data), meta.Size,
		minio.PutObjectOptions{
			ContentType: meta.ContentType,
			UserMetadata: map[string]string{
				metaFileName:  meta.FileName,
				metaPatientID: meta.PatientID,
				metaHash:      meta.Hash,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", meta.ID, err)
	}
	return &meta, nil
}

func (s *MinIOStore) Get(ctx context.Context, id string) (io.ReadCloser, *Metadata, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, translateMinIOError(id, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, translateMinIOError(id, err)
	}
	return obj, metadataFromInfo(id, info), nil
}

func (s *MinIOStore) Stat(ctx context.Context, id string) (*Metadata, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectKey(id), minio.StatObjectOptions{})
	if err != nil {
		return nil, translateMinIOError(id, err)
	}
	return metadataFromInfo(id, info), nil
}

// Delete reports ErrBlobNotFound for unknown ids, matching the in-memory
// store; S3 itself treats removal of a missing key as success.
func (s *MinIOStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Stat(ctx, id); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(id), minio.RemoveObjectOptions{}); err != nil {
		return translateMinIOError(id, err)
	}
	return nil
}

func translateMinIOError(id string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrBlobNotFound
	}
	return fmt.Errorf("blob %s: %w", id, err)
}

func metadataFromInfo(id string, info minio.ObjectInfo) *Metadata {
	return &Metadata{
		ID:          id,
		FileName:    userMeta(info, metaFileName),
		ContentType: info.ContentType,
		Size:        info.Size,
		PatientID:   userMeta(info, metaPatientID),
		Hash:        userMeta(info, metaHash),
		CreatedAt:   info.LastModified.UTC(),
	}
}

// userMeta reads a user metadata value whether the server returned it in the
// trimmed UserMetadata map or only as a raw x-amz-meta header.
func userMeta(info minio.ObjectInfo, key string) string {
	if v, ok := info.UserMetadata[key]; ok {
		return v
	}
	return info.Metadata.Get("X-Amz-Meta-" + key)
}
