package translate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/emit"
)

const indexName = "module.json"

// cacheIndex restores the parts of a generated module that are not source
// files. The generated files sit next to it in the fingerprint directory.
type cacheIndex struct {
	Package     string              `json:"package"`
	Files       []string            `json:"files"`
	Manifest    emit.SymbolManifest `json:"manifest"`
	Factories   []emit.Factory      `json:"factories,omitempty"`
	Diagnostics []emit.Diagnostic   `json:"diagnostics,omitempty"`
}

// loadCached reads a module back from the disk cache. Any unreadable or
// corrupt entry counts as a miss and is overwritten by the next store.
func (t *Translator) loadCached(fp Fingerprint) (*emit.GeneratedModule, bool) {
	if t.cfg.CacheDir == "" {
		return nil, false
	}
	dir := filepath.Join(t.cfg.CacheDir, string(fp))

	data, err := os.ReadFile(filepath.Join(dir, indexName))
	if err != nil {
		return nil, false
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, false
	}

	files := make(map[string][]byte, len(idx.Files))
	for _, name := range idx.Files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, false
		}
		files[name] = b
	}

	Logger().Debug("disk cache hit", zap.String("fingerprint", fp.Short()))
	return &emit.GeneratedModule{
		Package:     idx.Package,
		Files:       files,
		Manifest:    idx.Manifest,
		Factories:   idx.Factories,
		Diagnostics: idx.Diagnostics,
	}, true
}

// storeCached writes the module into a temp directory and renames it onto
// the fingerprint path, so readers never observe a partial entry.
func (t *Translator) storeCached(fp Fingerprint, mod *emit.GeneratedModule) error {
	dir := filepath.Join(t.cfg.CacheDir, string(fp))
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(t.cfg.CacheDir, 0o755); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(t.cfg.CacheDir, "tmp-"+fp.Short()+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	names := make([]string, 0, len(mod.Files))
	for name, data := range mod.Files {
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0o644); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	idx := cacheIndex{
		Package:     mod.Package,
		Files:       names,
		Manifest:    mod.Manifest,
		Factories:   mod.Factories,
		Diagnostics: mod.Diagnostics,
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, indexName), data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, dir); err != nil {
		// A concurrent writer renamed first; its entry is identical.
		if _, statErr := os.Stat(dir); statErr == nil {
			return nil
		}
		return err
	}
	return nil
}
