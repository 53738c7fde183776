package contentstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	testCases := []struct {
		key      string
		expected string
		valid    bool
	}{
		{"zov/модель-а.jpg", "zov/модель-а.jpg", true},
		{"/zov/a.png", "zov/a.png", true},
		{"../escape.jpg", "", false},
		{"zov/../../escape.jpg", "", false},
		{"zov//a.jpg", "", false},
		{"", "", false},
	}
	for _, test := range testCases {
		key, err := CleanKey(test.key)
		if !test.valid {
			require.Error(t, err, test.key)
			continue
		}
		require.NoError(t, err, test.key)
		require.Equal(t, test.expected, key)
	}
}

func TestFilesystemPut(t *testing.T) {
	root := t.TempDir()
	store := NewFilesystem(root)

	err := store.Put(context.Background(), "zov/модель-а.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	require.True(t, store.Exists("zov/модель-а.jpg"))

	contents, err := os.ReadFile(filepath.Join(root, "zov", "модель-а.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8}, contents)

	require.Error(t, store.Put(context.Background(), "../x.jpg", nil))

	got, err := store.Get(context.Background(), "zov/модель-а.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8}, got)

	_, err = store.Get(context.Background(), "zov/absent.jpg")
	require.ErrorIs(t, err, ErrNotFound)
}

type fakeS3 struct {
	inputs  []*s3.PutObjectInput
	bodies  [][]byte
	objects map[string][]byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3Put(t *testing.T) {
	client := &fakeS3{}
	store := NewS3(client, "fabriq-assets", "img/styles")

	err := store.Put(context.Background(), "zov/loft.png", []byte("png"))
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)
	require.Equal(t, "fabriq-assets", aws.ToString(client.inputs[0].Bucket))
	require.Equal(t, "img/styles/zov/loft.png", aws.ToString(client.inputs[0].Key))
	require.Equal(t, "image/png", aws.ToString(client.inputs[0].ContentType))
	require.Equal(t, []byte("png"), client.bodies[0])

	client.err = errors.New("access denied")
	require.Error(t, store.Put(context.Background(), "zov/loft.png", []byte("png")))
}

func TestS3Get(t *testing.T) {
	client := &fakeS3{}
	store := NewS3(client, "fabriq-assets", "data")

	_, err := store.Get(context.Background(), "styles.json")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(context.Background(), "styles.json", []byte("{}\n")))
	got, err := store.Get(context.Background(), "styles.json")
	require.NoError(t, err)
	require.Equal(t, []byte("{}\n"), got)

	client.err = errors.New("access denied")
	_, err = store.Get(context.Background(), "styles.json")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
