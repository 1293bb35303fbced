package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HerbertGao/PicStitch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := &model.Manifest{
		Base:            BaseName,
		Layers:          []string{LayerName(0), LayerName(1)},
		LayerCount:      2,
		CirclesPerLayer: 400,
		Radius:          3,
		Seed:            -17,
		Width:           200,
		Height:          180,
	}
	require.NoError(t, WriteManifest(dir, want))

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadManifestAbsent(t *testing.T) {
	got, err := ReadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadManifestInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(`{"layers":["a.png"]}`), 0644))
	_, err := ReadManifest(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(`not json`), 0644))
	_, err = ReadManifest(dir)
	assert.Error(t, err)
}

func TestReadManifestRejectsNamesOutsideDir(t *testing.T) {
	tests := []struct {
		name     string
		manifest model.Manifest
	}{
		{"parent base", model.Manifest{Base: "../secret/private.png"}},
		{"absolute base", model.Manifest{Base: "/etc/private.png"}},
		{"nested base", model.Manifest{Base: "sub/base.png"}},
		{"parent layer", model.Manifest{Base: BaseName, Layers: []string{LayerName(0), "../x.png"}}},
		{"empty layer", model.Manifest{Base: BaseName, Layers: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, WriteManifest(dir, &tt.manifest))
			_, err := ReadManifest(dir)
			assert.Error(t, err)
		})
	}
}

func TestLayerName(t *testing.T) {
	assert.Equal(t, "circle_00.png", LayerName(0))
	assert.Equal(t, "circle_09.png", LayerName(9))
	assert.Equal(t, "circle_12.png", LayerName(12))
}
