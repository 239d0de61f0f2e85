package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvcoach-backend/internal/shared/storage/object"
)

func TestJoinKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "exports/a.txt", "exports/a.txt"},
		{"root", "exports/a.txt", "root/exports/a.txt"},
		{"root/", "/exports/a.txt", "root/exports/a.txt"},
		{"/root/sub/", "exports/a.txt", "root/sub/exports/a.txt"},
		{"root", "", "root"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinKey(tt.prefix, tt.key), "prefix=%q key=%q", tt.prefix, tt.key)
	}
}

type fakeAPI struct {
	objects map[string]string
	last    *s3.PutObjectInput
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[aws.ToString(in.Key)] = string(data)
	f.last = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestPutWithKMSKey(t *testing.T) {
	api := &fakeAPI{}
	store := newStore(api, "bucket", "/cv/", "kms-1")

	n, err := store.Put(context.Background(), "exports/o/1.txt", "text/plain; charset=utf-8", strings.NewReader("log"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, "cv/exports/o/1.txt", aws.ToString(api.last.Key))
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, api.last.ServerSideEncryption)
	assert.Equal(t, "kms-1", aws.ToString(api.last.SSEKMSKeyId))
	assert.Equal(t, "private, no-store", aws.ToString(api.last.CacheControl))

	rc, err := store.Open(context.Background(), "exports/o/1.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "log", string(data))
}

func TestPutDefaultsToManagedEncryption(t *testing.T) {
	api := &fakeAPI{}
	store := newStore(api, "bucket", "", " ")

	_, err := store.Put(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, s3types.ServerSideEncryptionAes256, api.last.ServerSideEncryption)
	assert.Nil(t, api.last.SSEKMSKeyId)
}

func TestOpenMissingAndInvalidKeys(t *testing.T) {
	store := newStore(&fakeAPI{}, "bucket", "cv", "")

	_, err := store.Open(context.Background(), "exports/none.txt")
	assert.True(t, errors.Is(err, object.ErrNotFound), "got %v", err)

	_, err = store.Open(context.Background(), "../escape")
	assert.ErrorIs(t, err, object.ErrInvalidKey)

	_, err = New(context.Background(), "eu-west-1", " ", "", "")
	assert.Error(t, err)
}
