package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
- key: rain
  name: Rain
  src: rain.mp3
  contiguous: true
  tags: [nature, water]
- key: birds
  name: Morning Birds
  src: birds.mp3
  contiguous: false
  tags: [nature, morning]
- key: train
  name: Distant Train
  src: train.mp3
  contiguous: false
  tags: [city]
`

func loadTestLibrary(t *testing.T) *Library {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0644))
	lib, err := Load(path, "/srv/sounds")
	require.NoError(t, err)
	return lib
}

func TestLoad(t *testing.T) {
	lib := loadTestLibrary(t)

	assert.Equal(t, 3, lib.Size())

	rain, ok := lib.Get("rain")
	require.True(t, ok)
	assert.Equal(t, "Rain", rain.Name)
	assert.True(t, rain.IsContiguous)

	birds, ok := lib.Get("birds")
	require.True(t, ok)
	assert.False(t, birds.IsContiguous)

	_, ok = lib.Get("unknown")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty catalog", content: "[]"},
		{name: "missing key", content: "- name: Rain\n  src: rain.mp3"},
		{name: "duplicate key", content: "- key: rain\n- key: rain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "library.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path, "")
			assert.Error(t, err)
		})
	}
}

func TestLibrary_Keys(t *testing.T) {
	lib := loadTestLibrary(t)

	assert.Equal(t, []string{"rain", "birds"}, lib.Keys("nature"))
	assert.Equal(t, []string{"train"}, lib.Keys("city"))
	assert.Equal(t, []string{"rain", "birds", "train"}, lib.Keys(""))
	assert.Empty(t, lib.Keys("space"))
}

func TestLibrary_ResolveSrc(t *testing.T) {
	lib := loadTestLibrary(t)

	rain, _ := lib.Get("rain")
	assert.Equal(t, filepath.Join("/srv/sounds", "rain.mp3"), lib.ResolveSrc(rain))
}
