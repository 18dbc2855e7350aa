package filestorage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorage_SaveAndDelete(t *testing.T) {
	base := t.TempDir()
	storage, err := NewLocalFileStorage(base)
	require.NoError(t, err)

	path, err := storage.Save(context.Background(), strings.NewReader("photo"), "meter.jpg", "image/jpeg", "dispatches/d-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "dispatches/d-1/"))
	assert.True(t, strings.HasSuffix(path, ".jpg"))

	content, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(path)))
	require.NoError(t, err)
	assert.Equal(t, "photo", string(content))

	require.NoError(t, storage.Delete(context.Background(), path))
	_, err = os.Stat(filepath.Join(base, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))

	// повторное удаление не ошибка
	assert.NoError(t, storage.Delete(context.Background(), path))
}

type fakeS3 struct {
	put    *s3.PutObjectInput
	body   bytes.Buffer
	delKey string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	_, _ = f.body.ReadFrom(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.delKey = aws.ToString(in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3FileStorage_SaveUsesBucketAndContentType(t *testing.T) {
	client := &fakeS3{}
	storage := &S3FileStorage{client: client, bucket: "dispatch-files", region: "eu-central-1"}

	key, err := storage.Save(context.Background(), strings.NewReader("pdf"), "report.pdf", "application/pdf", "dispatches/d-2")
	require.NoError(t, err)

	assert.Equal(t, "dispatch-files", aws.ToString(client.put.Bucket))
	assert.Equal(t, key, aws.ToString(client.put.Key))
	assert.Equal(t, "application/pdf", aws.ToString(client.put.ContentType))
	assert.Equal(t, "pdf", client.body.String())
	assert.Equal(t, "https://dispatch-files.s3.eu-central-1.amazonaws.com/"+key, storage.URL(key))

	require.NoError(t, storage.Delete(context.Background(), key))
	assert.Equal(t, key, client.delKey)
}
