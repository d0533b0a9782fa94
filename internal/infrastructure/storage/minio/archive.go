package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
)

const molBlockContentType = "chemical/x-mdl-molfile"

// Dimension distinguishes 2D connection tables from 3D conformer blocks.
type Dimension string

const (
	Dim2D Dimension = "2d"
	Dim3D Dimension = "3d"
)

// MolBlockArchive stores V2000 mol-block payloads keyed by the structural
// content hash of the molecule they describe.  Writes are idempotent: the
// same structure always lands on the same object key.
type MolBlockArchive struct {
	client *Client
	logger logging.Logger
}

// NewMolBlockArchive builds an archive on top of an established Client.
func NewMolBlockArchive(client *Client, log logging.Logger) *MolBlockArchive {
	return &MolBlockArchive{client: client, logger: log}
}

func objectKey(contentHash string, dim Dimension) string {
	return fmt.Sprintf("molblocks/%s/%s.mol", contentHash, dim)
}

// Put archives a mol block under the given content hash.
func (a *MolBlockArchive) Put(ctx context.Context, contentHash string, dim Dimension, molBlock string) error {
	if contentHash == "" {
		return errors.InvalidParam("archive: content hash is required")
	}
	if strings.TrimSpace(molBlock) == "" {
		return errors.InvalidParam("archive: mol block is empty")
	}

	data := []byte(molBlock)
	_, err := a.client.api.PutObject(ctx, a.client.bucket, objectKey(contentHash, dim),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: molBlockContentType},
	)
	if err != nil {
		a.logger.Error("Failed to archive mol block",
			logging.String("hash", contentHash),
			logging.String("dimension", string(dim)),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodeStorageError, "archive: failed to store mol block")
	}
	return nil
}

// Get retrieves an archived mol block.  Absent objects return a not-found
// error the orchestrator treats as a cache miss, not a failure.
func (a *MolBlockArchive) Get(ctx context.Context, contentHash string, dim Dimension) (string, error) {
	obj, err := a.client.api.GetObject(ctx, a.client.bucket, objectKey(contentHash, dim), minio.GetObjectOptions{})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "archive: failed to open object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", errors.NotFound("archived mol block not found").WithDetail(contentHash)
		}
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "archive: failed to read object")
	}
	return string(data), nil
}

// Exists reports whether a mol block is already archived.
func (a *MolBlockArchive) Exists(ctx context.Context, contentHash string, dim Dimension) (bool, error) {
	_, err := a.client.api.StatObject(ctx, a.client.bucket, objectKey(contentHash, dim), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "archive: failed to stat object")
	}
	return true, nil
}

// Delete removes both dimensions for a content hash.  Missing objects are
// ignored.
func (a *MolBlockArchive) Delete(ctx context.Context, contentHash string) error {
	for _, dim := range []Dimension{Dim2D, Dim3D} {
		err := a.client.api.RemoveObject(ctx, a.client.bucket, objectKey(contentHash, dim), minio.RemoveObjectOptions{})
		if err != nil && !isNoSuchKey(err) {
			return errors.Wrap(err, errors.ErrCodeStorageError, "archive: failed to remove object")
		}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
