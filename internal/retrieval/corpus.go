package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists the corpus documents, e.g.
//
//	documents:
//	  - id: dental
//	    title: Dental services
//	    path: dental_services.md
type Manifest struct {
	Documents []ManifestEntry `yaml:"documents"`
}

type ManifestEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
}

var corpusExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// LoadCorpus reads a YAML manifest, or every .md/.txt file of a directory
// in name order. Manifest paths are relative to the manifest.
func LoadCorpus(path string) ([]Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat corpus: %w", err)
	}
	var entries []ManifestEntry
	baseDir := path
	if info.IsDir() {
		entries, err = scanDir(path)
	} else {
		baseDir = filepath.Dir(path)
		entries, err = readManifest(path)
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus %s has no documents", path)
	}

	seen := make(map[string]bool, len(entries))
	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate document id %q", id)
		}
		seen[id] = true
		p := e.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Title: e.Title, Content: string(content)})
	}
	return docs, nil
}

func readManifest(path string) ([]ManifestEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	for i, e := range m.Documents {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("manifest document %d has no path", i)
		}
	}
	return m.Documents, nil
}

func scanDir(dir string) ([]ManifestEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	var names []string
	for _, f := range files {
		if f.IsDir() || !corpusExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		names = append(names, f.Name())
	}
	sort.Strings(names)
	entries := make([]ManifestEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, ManifestEntry{Path: name})
	}
	return entries, nil
}
