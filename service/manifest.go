package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/HerbertGao/PicStitch/model"
)

const ManifestName = "manifest.json"

// WriteManifest 将清单写入 dir/manifest.json
func WriteManifest(dir string, m *model.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	return nil
}

// ReadManifest 读取 dir 下的清单，不存在时返回 nil, nil
func ReadManifest(dir string) (*model.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	if m.Base == "" {
		return nil, fmt.Errorf("%s: missing base", ManifestName)
	}
	for _, name := range append([]string{m.Base}, m.Layers...) {
		if !isPlainFileName(name) {
			return nil, fmt.Errorf("%s: %q is not a file in the layer directory", ManifestName, name)
		}
	}
	return &m, nil
}

// isPlainFileName 清单中的文件名只能指向同一目录下的文件
func isPlainFileName(name string) bool {
	return filepath.IsLocal(name) && filepath.Base(name) == name
}
