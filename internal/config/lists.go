package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Lists are the raw word lists, one entry per line.
type Lists struct {
	Matchwords              []string
	MatchwordsCaseSensitive []string
	BlockWords              []string
}

// LoadLists reads the three list files from dir. A missing file counts as
// empty; having no matchword at all is ErrNoMatchwords.
func LoadLists(dir string) (Lists, error) {
	var (
		lists Lists
		err   error
	)
	if lists.Matchwords, err = readList(filepath.Join(dir, MatchlistFile)); err != nil {
		return Lists{}, err
	}
	if lists.MatchwordsCaseSensitive, err = readList(filepath.Join(dir, MatchlistCaseSensitiveFile)); err != nil {
		return Lists{}, err
	}
	if lists.BlockWords, err = readList(filepath.Join(dir, BlocklistFile)); err != nil {
		return Lists{}, err
	}

	if len(lists.Matchwords) == 0 && len(lists.MatchwordsCaseSensitive) == 0 {
		return Lists{}, fmt.Errorf("%w: add words to %s or %s in %s",
			ErrNoMatchwords, MatchlistFile, MatchlistCaseSensitiveFile, dir)
	}
	return lists, nil
}

func readList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	return lo.Filter(lines, func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	}), nil
}
