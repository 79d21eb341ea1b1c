package s3

import (
	"bytes"
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
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestDeleteRemovesPrefixedObject(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store, err := NewWithClient(fake, "bucket", "uploads", "")
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := store.Put(ctx, "guest:1", "cv.txt", strings.NewReader("Go developer"))
	require.NoError(t, err)
	require.Contains(t, fake.objects, "uploads/"+obj.Key)

	require.NoError(t, store.Delete(ctx, obj.Key))
	assert.NotContains(t, fake.objects, "uploads/"+obj.Key)

	fake.err = errors.New("access denied")
	err = store.Delete(ctx, obj.Key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 delete bucket/uploads/")
}

func TestPutAndOpenUnderPrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store, err := NewWithClient(fake, "bucket", "/uploads/", "")
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := store.Put(ctx, "guest:1", "cv.txt", strings.NewReader("Go developer"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("Go developer")), obj.SizeBytes)
	assert.Equal(t, "text/plain", obj.MimeType)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "uploads/"+obj.Key, aws.ToString(put.Key))
	assert.Equal(t, s3types.ServerSideEncryptionAes256, put.ServerSideEncryption)
	assert.Equal(t, int64(len("Go developer")), aws.ToInt64(put.ContentLength))

	rc, err := store.Open(ctx, obj.Key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Go developer", string(body))
}

func TestPutUsesKMSKeyWhenConfigured(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store, err := NewWithClient(fake, "bucket", "", "kms-1")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "o", "cv.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, fake.puts[0].ServerSideEncryption)
	assert.Equal(t, "kms-1", aws.ToString(fake.puts[0].SSEKMSKeyId))
}

func TestPutWrapsClientError(t *testing.T) {
	cause := errors.New("access denied")
	store, err := NewWithClient(&fakeS3{err: cause}, "bucket", "", "")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "o", "cv.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, cause)
}

func TestNewWithClientRequiresBucket(t *testing.T) {
	_, err := NewWithClient(&fakeS3{}, " ", "", "")
	require.Error(t, err)
}

func TestApplyPrefix(t *testing.T) {
	assert.Equal(t, "owner/cv.pdf", applyPrefix("", "/owner/cv.pdf"))
	assert.Equal(t, "uploads/owner/cv.pdf", applyPrefix("uploads", "owner/cv.pdf"))
	assert.Equal(t, "uploads", applyPrefix("uploads", ""))
}
