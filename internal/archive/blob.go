package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/talkweave/engine/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// BlobStore persists session archives via gocloud.dev/blob, supporting
// S3, GCS, Azure Blob Storage, and S3-compatible stores
type BlobStore struct {
	bucket *blob.Bucket
	prefix string
}

var ErrArchiveNotFound = errors.New("session archive not found")

var _ Store = (*BlobStore)(nil)

func NewBlobStore(
	ctx context.Context, bucketURL, prefix string,
) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobStore{bucket: bucket, prefix: prefix}, nil
}

func (s *BlobStore) Get(
	ctx context.Context, id api.SessionID,
) (*api.SessionArchive, error) {
	data, err := s.bucket.ReadAll(ctx, s.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, id)
		}
		return nil, err
	}

	var record api.SessionArchive
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BlobStore) Put(
	ctx context.Context, rec *api.SessionArchive,
) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.bucket.WriteAll(ctx, s.keyFor(rec.Session.ID), data, nil)
}

func (s *BlobStore) Delete(ctx context.Context, id api.SessionID) error {
	err := s.bucket.Delete(ctx, s.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) keyFor(id api.SessionID) string {
	return s.prefix + string(id) + ".json"
}
