package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jfilter/track-the-news/internal/domain"
)

//go:embed feeds.schema.json
var feedsSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// LoadFeeds reads and validates dir/rssfeeds.json. A missing, empty or
// malformed file is ErrNoFeeds.
func LoadFeeds(dir string) ([]domain.Feed, error) {
	path := filepath.Join(dir, FeedsFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoFeeds, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FeedsFile, err)
	}

	feeds, err := ParseFeeds(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return feeds, nil
}

// ParseFeeds validates a feed list document against the embedded schema.
func ParseFeeds(raw []byte) ([]domain.Feed, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: feed list is empty", ErrNoFeeds)
	}

	var value any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: decode feed list: %v", ErrNoFeeds, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %v", ErrNoFeeds, err)
	}

	var feeds []domain.Feed
	if err := json.Unmarshal(trimmed, &feeds); err != nil {
		return nil, fmt.Errorf("%w: unmarshal feed list: %v", ErrNoFeeds, err)
	}
	for i := range feeds {
		feeds[i].Outlet = strings.TrimSpace(feeds[i].Outlet)
		feeds[i].URL = strings.TrimSpace(feeds[i].URL)
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%w: feed list has no entries", ErrNoFeeds)
	}
	return feeds, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("rssfeeds.schema.json", strings.NewReader(feedsSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("rssfeeds.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	return compiledSchema, nil
}
