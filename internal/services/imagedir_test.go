package services_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MegaGrindStone/faey-assistant/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageDirSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "generated-images")
	d, err := services.NewImageDir(dir, "/generated-images")
	require.NoError(t, err)

	now := time.UnixMilli(1700000000000)
	url, err := d.Save([]byte("first"), now)
	require.NoError(t, err)
	assert.Equal(t, "/generated-images/img_1700000000000.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "img_1700000000000.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestImageDirSaveCollision(t *testing.T) {
	dir := t.TempDir()
	d, err := services.NewImageDir(dir, "/generated-images")
	require.NoError(t, err)

	now := time.UnixMilli(1700000000000)
	first, err := d.Save([]byte("first"), now)
	require.NoError(t, err)
	second, err := d.Save([]byte("second"), now)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "/generated-images/img_1700000000001.png", second)

	got, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(first, "/generated-images/")))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got, "existing file must not be overwritten")
}
