package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-api-social/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), m.types[key], nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func upload(name string, data []byte) domain.ImageUpload {
	return domain.ImageUpload{Filename: name, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func TestSave_StoresUnderKindPrefix(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)

	img, err := svc.Save(context.Background(), domain.ImagePost, 4, upload("cat.PNG", pngBytes))

	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, strings.HasPrefix(img.Name, "post_4_"))
	assert.True(t, strings.HasSuffix(img.Name, ".png"))
	assert.Equal(t, "post_uploads/"+img.Name, img.Object)
	assert.Equal(t, "/api/posts/post_uploads/"+img.Name, img.URL)
	assert.Len(t, img.Hash, 64)
	assert.Equal(t, pngBytes, store.objects[img.Object])
}

func TestSave_RejectsExtension(t *testing.T) {
	_, err := NewService(newMemStore()).Save(context.Background(), domain.ImagePost, 1, upload("evil.exe", pngBytes))
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSave_RejectsSpoofedContent(t *testing.T) {
	_, err := NewService(newMemStore()).Save(context.Background(), domain.ImageComment, 1,
		upload("fake.jpg", []byte("<html><body>not an image</body></html>")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "Invalid image content")
}

func TestSave_RejectsOversize(t *testing.T) {
	big := append(append([]byte{}, pngBytes...), make([]byte, MaxImageBytes)...)
	up := upload("big.png", big)
	up.Size = 0 // unknown size must still be enforced while reading

	_, err := NewService(newMemStore()).Save(context.Background(), domain.ImageProfile, 1, up)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestOpen_ValidatesFilename(t *testing.T) {
	svc := NewService(newMemStore())

	_, _, err := svc.Open(context.Background(), domain.ImagePost, "../secrets.png")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	_, _, err = svc.Open(context.Background(), domain.ImagePost, "missing.png")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestOpen_RoundTripAndRemove(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	img, err := svc.Save(context.Background(), domain.ImageProfile, 2, upload("me.png", pngBytes))
	require.NoError(t, err)

	rc, ct, err := svc.Open(context.Background(), domain.ImageProfile, img.Name)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", ct)

	require.NoError(t, svc.Remove(context.Background(), img.URL))
	assert.Empty(t, store.objects)
}

func TestRemove_UnknownReference(t *testing.T) {
	err := NewService(newMemStore()).Remove(context.Background(), "/etc/passwd")
	assert.Error(t, err)
}
