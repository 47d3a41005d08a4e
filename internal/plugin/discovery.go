package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// manifestNames are the files a plugin subdirectory may carry, probed
// in order.
var manifestNames = []string{"plugin.yaml", "plugin.yml", "plugin.json"}

type candidate struct {
	manifest Manifest
	path     string
}

// scanDir walks the immediate subdirectories of dir and decodes the
// first manifest file each one carries. Entries are returned in
// directory order; a broken manifest is reported in errs and skipped
// so one bad plugin cannot hide the rest.
func scanDir(dir string) (found []candidate, errs []error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read plugin directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		path, ok := manifestIn(sub)
		if !ok {
			continue
		}
		man, err := decodeManifest(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		found = append(found, candidate{manifest: man, path: path})
	}
	return found, errs, nil
}

func manifestIn(dir string) (string, bool) {
	for _, name := range manifestNames {
		path := filepath.Join(dir, name)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, true
		}
	}
	return "", false
}

func decodeManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var man Manifest
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(raw, &man)
	} else {
		err = yaml.Unmarshal(raw, &man)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if man.Name == "" {
		return Manifest{}, fmt.Errorf("manifest %s has no plugin name", path)
	}
	return man, nil
}
