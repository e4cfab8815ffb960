package storage_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/imaging"
	"github.com/rpupo63/digital-mix-backend/storage"
	"github.com/rpupo63/digital-mix-backend/storage/memory"
)

const publicBase = "https://cdn.example.com/storage/v1/object/public"

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpload_StoresUnderProjectPrefix(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "blog-images", publicBase+"/")
	projectID := uuid.New()

	url, err := gw.Upload(context.Background(), pngBytes(t, 32, 32), "cover.png", "image/png", projectID)
	require.NoError(t, err)

	prefix := publicBase + "/blog-images/"
	require.True(t, strings.HasPrefix(url, prefix), url)

	key := strings.TrimPrefix(url, prefix)
	assert.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^%s/\d{13}-[a-z0-9]{6}\.png$`, projectID)), key)

	data, contentType, ok := backend.Get(key)
	require.True(t, ok)
	assert.Equal(t, "image/png", contentType)
	assert.NotEmpty(t, data)
}

func TestUpload_RejectsInvalidFileType(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "", publicBase)

	_, err := gw.Upload(context.Background(), []byte("%PDF-1.4"), "doc.pdf", "application/pdf", uuid.New())

	assert.True(t, errs.IsInvalidFileType(err))
	assert.Equal(t, 0, backend.Puts())
}

func TestUpload_RejectsLargeFiles(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "", publicBase)

	_, err := gw.Upload(context.Background(), make([]byte, storage.MaxUploadSize+1), "big.jpg", "image/jpeg", uuid.New())

	assert.True(t, errs.IsFileTooLarge(err))
	assert.Equal(t, 0, backend.Puts())
}

func TestUpload_RejectsUndecodableImage(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "", publicBase)

	_, err := gw.Upload(context.Background(), []byte("not really a jpeg"), "x.jpg", "image/jpeg", uuid.New())

	assert.True(t, errs.IsImageProcessing(err))
	assert.Equal(t, 0, backend.Puts())
}

func TestUpload_RejectsOversizedDimensions(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "", publicBase)

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], 60_000)
	binary.BigEndian.PutUint32(ihdr[4:], 60_000)
	ihdr[8] = 8
	chunk := append([]byte("IHDR"), ihdr...)
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))

	_, err := gw.Upload(context.Background(), buf.Bytes(), "huge.png", "image/png", uuid.New())

	assert.True(t, errs.IsImageProcessing(err))
	assert.Contains(t, err.Error(), imaging.ErrTooManyPixels.Error())
	assert.Equal(t, 0, backend.Puts())
}

func TestUpload_WebPUploadIsStoredAsJPEG(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "", publicBase)

	// content is PNG bytes, but the name says webp: output format follows the name rule
	url, err := gw.Upload(context.Background(), pngBytes(t, 10, 10), "photo.webp", "image/webp", uuid.New())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".jpg"), url)
}

func TestDelete(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "blog-images", publicBase)
	ctx := context.Background()

	url, err := gw.Upload(ctx, pngBytes(t, 8, 8), "a.png", "image/png", uuid.New())
	require.NoError(t, err)

	require.NoError(t, gw.Delete(ctx, url))
	key, ok := gw.KeyFromURL(url)
	require.True(t, ok)
	_, _, exists := backend.Get(key)
	assert.False(t, exists)

	// deleting again is not an error
	assert.NoError(t, gw.Delete(ctx, url))
}

func TestDelete_InvalidURL(t *testing.T) {
	gw := storage.NewGateway(memory.New(), "blog-images", publicBase)

	err := gw.Delete(context.Background(), "https://elsewhere.example.com/picture.png")
	assert.True(t, errs.IsInvalidURL(err))
}

func TestList_NewestFirstAndScopedToProject(t *testing.T) {
	backend := memory.New()
	gw := storage.NewGateway(backend, "blog-images", publicBase)
	ctx := context.Background()
	projectID := uuid.New()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var uploaded []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		backend.SetClock(func() time.Time { return at })
		url, err := gw.Upload(ctx, pngBytes(t, 4, 4), "p.png", "image/png", projectID)
		require.NoError(t, err)
		uploaded = append(uploaded, url)
	}
	_, err := gw.Upload(ctx, pngBytes(t, 4, 4), "other.png", "image/png", uuid.New())
	require.NoError(t, err)

	urls, err := gw.List(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{uploaded[2], uploaded[1], uploaded[0]}, urls)
}

func TestOwnsAndKeyFromURL(t *testing.T) {
	gw := storage.NewGateway(memory.New(), "blog-images", publicBase)

	key, ok := gw.KeyFromURL(publicBase + "/blog-images/p/1-abcdef.jpg")
	assert.True(t, ok)
	assert.Equal(t, "p/1-abcdef.jpg", key)
	assert.True(t, gw.Owns(publicBase+"/blog-images/p/1-abcdef.jpg"))
	assert.False(t, gw.Owns("https://images.unsplash.com/photo.jpg"))

	_, ok = gw.KeyFromURL(publicBase + "/blog-images/")
	assert.False(t, ok)
}

func TestKeyFromURL_RejectsTraversal(t *testing.T) {
	gw := storage.NewGateway(memory.New(), "blog-images", publicBase)
	own := uuid.New()
	other := uuid.New()

	for _, key := range []string{
		fmt.Sprintf("%s/../%s/1-abcdef.jpg", own, other),
		fmt.Sprintf("%s/./1-abcdef.jpg", own),
		fmt.Sprintf("%s//1-abcdef.jpg", own),
		"../secret.jpg",
		"..",
	} {
		url := publicBase + "/blog-images/" + key
		assert.True(t, gw.Owns(url), url)
		_, ok := gw.KeyFromURL(url)
		assert.False(t, ok, key)
	}

	err := gw.Delete(context.Background(), fmt.Sprintf("%s/blog-images/%s/../%s/1-abcdef.jpg", publicBase, own, other))
	assert.True(t, errs.IsInvalidURL(err))
}

// takenKeys refuses the first n puts as if the generated key already existed
type takenKeys struct {
	*memory.Backend
	n int
}

func (b *takenKeys) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if b.n > 0 {
		b.n--
		return errs.ErrObjectExists
	}
	return b.Backend.Put(ctx, key, data, contentType)
}

func TestUpload_RetriesWithNewKeyWhenTaken(t *testing.T) {
	backend := &takenKeys{Backend: memory.New(), n: 2}
	gw := storage.NewGateway(backend, "blog-images", publicBase)

	url, err := gw.Upload(context.Background(), pngBytes(t, 8, 8), "a.png", "image/png", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Puts())

	key, ok := gw.KeyFromURL(url)
	require.True(t, ok)
	_, _, found := backend.Get(key)
	assert.True(t, found)
}

func TestUpload_GivesUpWhenKeysKeepColliding(t *testing.T) {
	backend := &takenKeys{Backend: memory.New(), n: 10}
	gw := storage.NewGateway(backend, "blog-images", publicBase)

	_, err := gw.Upload(context.Background(), pngBytes(t, 8, 8), "a.png", "image/png", uuid.New())
	assert.True(t, errs.IsStorageWrite(err))
	assert.Equal(t, 7, backend.n)
	assert.Equal(t, 0, backend.Puts())
}

func TestIsAllowedContentType(t *testing.T) {
	assert.True(t, storage.IsAllowedContentType("image/jpeg"))
	assert.True(t, storage.IsAllowedContentType("IMAGE/PNG"))
	assert.True(t, storage.IsAllowedContentType("image/webp; charset=binary"))
	assert.False(t, storage.IsAllowedContentType("application/pdf"))
	assert.False(t, storage.IsAllowedContentType(""))
}
