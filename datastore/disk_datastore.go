package datastore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/utils"
)

var ErrNotADirectory = errors.New("root path is not a directory")

type (
	DiskDataStore struct {
		rootPath    string
		granularity uint64
	}
)

func NewDiskDataStore(rootPath string, granularity uint64) (*DiskDataStore, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("error in os.Stat: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, rootPath)
	}

	dds := &DiskDataStore{
		rootPath:    rootPath,
		granularity: granularity,
	}

	return dds, nil
}

// ListParts walks <root>/<table> for parquet files. A table without a
// directory simply has no parts yet.
func (dds *DiskDataStore) ListParts(ctx context.Context, table string) ([]part.Part, error) {
	tableRoot := filepath.Join(dds.rootPath, table)

	var parts []part.Part
	// WalkDir visits entries in lexical order, so parts come out sorted by path
	err := filepath.WalkDir(tableRoot, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), partExt) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("error in Info: %w", err)
		}
		rows, err := localRowCount(filePath)
		if err != nil {
			return fmt.Errorf("error reading footer of %s: %w", filePath, err)
		}
		rel, err := filepath.Rel(tableRoot, filePath)
		if err != nil {
			return fmt.Errorf("error in filepath.Rel: %w", err)
		}

		parts = append(parts, newPart(table, filepath.ToSlash(rel), rows, dds.granularity, info.ModTime().UTC()))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []part.Part{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error in filepath.WalkDir: %w", err)
	}

	logger.Debug().Str("table", table).Int("parts", len(parts)).Msg("listed disk parts")
	return utils.ArrayOrEmpty(parts), nil
}

func (dds *DiskDataStore) Shutdown(context.Context) error {
	return nil
}
