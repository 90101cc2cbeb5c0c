package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	data []byte
	ok   bool
}

func (g fakeGetter) Get(string) ([]byte, bool) {
	return g.data, g.ok
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNonExistentFileDefaults(t *testing.T) {
	file := New("https://example.com/gone.jpg", fakeGetter{ok: false})

	assert.False(t, file.Exists)
	assert.Empty(t, file.Name)
	assert.Empty(t, file.Hash)
	assert.Empty(t, file.MIME)
	assert.Zero(t, file.Size)

	_, ok := file.Payload()
	assert.False(t, ok)
}

func TestPhotoClassification(t *testing.T) {
	file := New("https://example.com/pic.png", fakeGetter{data: pngBytes(t, 100, 80), ok: true})

	require.True(t, file.Exists)
	assert.Equal(t, "image/png", file.MIME)
	assert.Equal(t, GroupPhoto, file.Group())
	assert.Equal(t, "pic.png", file.Name)
	assert.Len(t, file.Hash, 128)
}

func TestExtremeAspectRatioDowngradesToDocument(t *testing.T) {
	// 2000x50 is ratio 40, far past the inline-preview limit, so a valid
	// photo MIME still lands in the document bucket.
	file := New("https://example.com/banner.png", fakeGetter{data: pngBytes(t, 2000, 50), ok: true})

	require.True(t, file.Exists)
	assert.Equal(t, "image/png", file.MIME)
	assert.Equal(t, GroupDocument, file.Group())
}

func TestOversizedDimensionsDowngradeToDocument(t *testing.T) {
	file := New("https://example.com/huge.png", fakeGetter{data: pngBytes(t, 8000, 2001), ok: true})

	require.True(t, file.Exists)
	assert.Equal(t, GroupDocument, file.Group())
}

func TestGifIsAnimation(t *testing.T) {
	file := New("https://example.com/clip.gif", fakeGetter{data: gifBytes(t), ok: true})

	require.True(t, file.Exists)
	assert.Equal(t, "image/gif", file.MIME)
	assert.Equal(t, GroupAnimation, file.Group())
}

func TestPayloadSizeCeiling(t *testing.T) {
	atLimit := fromBytes("https://example.com/at.bin", make([]byte, MaxUploadSize))
	payload, ok := atLimit.Payload()
	require.True(t, ok, "a file of exactly the ceiling must still be deliverable")
	assert.Equal(t, GroupDocument, payload.Group)

	overLimit := fromBytes("https://example.com/over.bin", make([]byte, MaxUploadSize+1))
	_, ok = overLimit.Payload()
	assert.False(t, ok, "one byte past the ceiling must degrade to a message")
	assert.True(t, overLimit.Exists)
}

func TestNameUnescapesPath(t *testing.T) {
	file := fromBytes("https://example.com/dir/my%20file.png", pngBytes(t, 10, 10))
	assert.Equal(t, "my file.png", file.Name)
}
