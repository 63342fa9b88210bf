//go:build integration
// +build integration

// Run with: go test -tags integration ./internal/storage/...

package storage_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"eval-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

const (
	minioUsername = "admin"
	minioPassword = "password"
	bucketName    = "eval-artifacts"
)

func setupMinioContainer(t *testing.T, ctx context.Context) string {
	minioContainer, err := minio.Run(
		ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(minioUsername),
		minio.WithPassword(minioPassword),
	)
	require.NoError(t, err, "Failed to start MinIO container")

	t.Cleanup(func() {
		err := minioContainer.Terminate(context.Background())
		require.NoError(t, err, "Failed to terminate MinIO container")
	})

	connStr, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err, "Failed to get MinIO connection string")

	return "http://" + connStr
}

func setupS3Provider(t *testing.T, ctx context.Context) *storage.S3Provider {
	t.Helper()

	provider, err := storage.NewS3Provider(&storage.S3ProviderConfig{
		S3EndpointURL:     setupMinioContainer(t, ctx),
		S3AccessKeyID:     minioUsername,
		S3SecretAccessKey: minioPassword,
		S3Region:          "us-east-1",
	})
	require.NoError(t, err)
	require.NoError(t, provider.CreateBucket(ctx, bucketName))
	return provider
}

func TestS3Provider_PutGetList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provider := setupS3Provider(t, ctx)

	content := []byte(`{"model_name":"satellite-classifier:latest"}`)
	require.NoError(t, provider.PutObject(ctx, bucketName, "timing_results.json", bytes.NewReader(content)))

	data, err := provider.GetObject(ctx, bucketName, "timing_results.json")
	require.NoError(t, err)
	assert.Equal(t, content, data)

	objs, err := provider.ListObjects(ctx, bucketName, "timing")
	require.NoError(t, err)
	assert.Equal(t, []storage.Object{{Name: "timing_results.json", Size: int64(len(content))}}, objs)

	// creating an existing bucket is not an error
	require.NoError(t, provider.CreateBucket(ctx, bucketName))

	require.NoError(t, provider.DeleteObject(ctx, bucketName, "timing_results.json"))
	_, err = provider.GetObject(ctx, bucketName, "timing_results.json")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	require.NoError(t, provider.DeleteObject(ctx, bucketName, "timing_results.json"))
}

func TestS3Provider_GetObjectNotFound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	provider := setupS3Provider(t, ctx)

	_, err := provider.GetObject(ctx, bucketName, "eval_result.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
