package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const feedsExample = `[
  {
    "outlet": "Example News",
    "url": "https://example.org/rss.xml",
    "delicateURLs": false,
    "redirectLinks": false
  }
]
`

// Scaffold creates dir and every configuration file that does not exist
// yet. Existing files are left untouched. It returns the created paths.
func Scaffold(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	defaults, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}

	files := []struct {
		name    string
		content []byte
		mode    fs.FileMode
	}{
		{ConfigFile, defaults, 0o600},
		{MatchlistFile, nil, 0o644},
		{MatchlistCaseSensitiveFile, nil, 0o644},
		{BlocklistFile, nil, 0o644},
		{FeedsFile, []byte(feedsExample), 0o644},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		_, err := os.Stat(path)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return created, fmt.Errorf("stat %s: %w", f.name, err)
		}
		if err := os.WriteFile(path, f.content, f.mode); err != nil {
			return created, fmt.Errorf("write %s: %w", f.name, err)
		}
		created = append(created, path)
	}
	return created, nil
}
