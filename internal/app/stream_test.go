package app

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/media-proxy-go/internal/domain"
	"github.com/yourusername/media-proxy-go/internal/infrastructure"
)

func newTestStream(t *testing.T, size int, kind domain.MediaKind) (*MediaStream, afero.Fs, string) {
	t.Helper()

	fs := afero.NewMemMapFs()
	storage := infrastructure.NewAferoStorage(fs, testDir, ".gitkeep")
	require.NoError(t, storage.Ensure())

	path := filepath.Join(testDir, "clip_1a2b3c4d.mp4")
	data := bytes.Repeat([]byte{0xAB}, size)
	require.NoError(t, afero.WriteFile(fs, path, data, 0644))

	file, err := storage.Stat(path)
	require.NoError(t, err)

	stream, err := OpenStream(storage, file, kind, nil, zap.NewNop())
	require.NoError(t, err)
	return stream, fs, path
}

func TestMediaStream_ChunksAndDeletesAfterDrain(t *testing.T) {
	size := 2*ChunkSize + 100
	stream, fs, path := newTestStream(t, size, domain.KindVideo)

	assert.Equal(t, "video/mp4", stream.ContentType)
	assert.Equal(t, int64(size), stream.Size)

	var sizes []int
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))

		// the file stays in place until drained
		exists, _ := afero.Exists(fs, path)
		assert.True(t, exists)
	}

	assert.Equal(t, []int{ChunkSize, ChunkSize, 100}, sizes)
	assert.Equal(t, int64(size), stream.BytesSent())

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)

	// closing again is harmless
	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
}

func TestMediaStream_WriteTo(t *testing.T) {
	stream, fs, path := newTestStream(t, 3*ChunkSize, domain.KindAudio)

	var out bytes.Buffer
	n, err := stream.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(3*ChunkSize), n)
	assert.Equal(t, 3*ChunkSize, out.Len())
	assert.Equal(t, "audio/mpeg", stream.ContentType)

	exists, _ := afero.Exists(fs, path)
	assert.False(t, exists)
}

func TestMediaStream_EarlyCloseDeletes(t *testing.T) {
	stream, fs, path := newTestStream(t, 4*ChunkSize, domain.KindImage)

	_, err := stream.Next()
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	exists, _ := afero.Exists(fs, path)
	assert.False(t, exists)
	assert.Equal(t, "image/jpeg", stream.ContentType)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestMediaStream_WriterFailureStillDeletes(t *testing.T) {
	stream, fs, path := newTestStream(t, 2*ChunkSize, domain.KindVideo)

	_, err := stream.WriteTo(failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client went away")

	exists, _ := afero.Exists(fs, path)
	assert.False(t, exists)
}

func TestMediaStream_FileAlreadyGone(t *testing.T) {
	stream, fs, path := newTestStream(t, 10, domain.KindVideo)

	require.NoError(t, fs.Remove(path))
	assert.NoError(t, stream.Close())
}

func TestMediaStream_EmptyFile(t *testing.T) {
	stream, fs, path := newTestStream(t, 0, domain.KindVideo)

	_, err := stream.Next()
	assert.Equal(t, io.EOF, err)

	exists, _ := afero.Exists(fs, path)
	assert.False(t, exists)
}
