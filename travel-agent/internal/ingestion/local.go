package ingestion

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/processing"
)

var allowedExt = []string{".json"}

// LoadLocalFiles lists dataset files under root. A file path is returned as is.
func LoadLocalFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, a := range allowedExt {
			if ext == a {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	return out, err
}

// LoadDataset reads every dataset file under path; each holds a JSON array of nodes.
func LoadDataset(path string) ([]processing.Node, error) {
	files, err := LoadLocalFiles(path)
	if err != nil {
		return nil, err
	}
	var nodes []processing.Node
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var batch []processing.Node
		if err := json.Unmarshal(b, &batch); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		nodes = append(nodes, batch...)
	}
	return nodes, nil
}
