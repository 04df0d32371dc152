package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileLoader reads every *.json file in Dir. Each file holds a JSON array of
// documents.
type FileLoader struct {
	Dir string
}

func (l FileLoader) Load(ctx context.Context) ([]Document, error) {
	paths, err := filepath.Glob(filepath.Join(l.Dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing corpus files in %s: %w", l.Dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no corpus files in %s", l.Dir)
	}
	sort.Strings(paths)

	logger := slog.Default().With("component", "corpus-loader")
	var docs []Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
		}
		var batch []Document
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
		}
		logger.Debug("corpus file loaded", "path", path, "documents", len(batch))
		docs = append(docs, batch...)
	}
	if err := Validate(docs); err != nil {
		return nil, err
	}
	return docs, nil
}
