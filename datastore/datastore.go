package datastore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"github.com/danthegoodman1/marksplit/gologger"
	"github.com/danthegoodman1/marksplit/part"
)

const partExt = ".parquet"

var (
	logger = gologger.NewComponentLogger("datastore")
)

type (
	// DataStore discovers the parts of a table straight from their files.
	// Parts are immutable once written, so the listing is always safe to cache.
	DataStore interface {
		ListParts(ctx context.Context, table string) ([]part.Part, error)
		Shutdown(ctx context.Context) error
	}
)

// footerRowCount reads only the parquet footer, column chunks are never touched
func footerRowCount(pf source.ParquetFile) (int64, error) {
	pr := &reader.ParquetReader{PFile: pf}
	if err := pr.ReadFooter(); err != nil {
		return 0, fmt.Errorf("error in ReadFooter: %w", err)
	}
	return pr.GetNumRows(), nil
}

func localRowCount(filePath string) (int64, error) {
	pf, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return 0, fmt.Errorf("error in NewLocalFileReader: %w", err)
	}
	defer pf.Close()

	return footerRowCount(pf)
}

// newPart builds a part from its path relative to the table root,
// e.g. "y=2023/m=01/part_abc.parquet"
func newPart(table, relPath string, rows int64, granularity uint64, createdAt time.Time) part.Part {
	partition := path.Dir(relPath)
	if partition == "." {
		partition = ""
	}
	return part.Part{
		ID:        strings.TrimSuffix(path.Base(relPath), partExt),
		Table:     table,
		Partition: partition,
		Alive:     true,
		CreatedAt: createdAt,
		RowCount:  rows,
		Marks:     part.MarksForRows(rows, granularity),
	}
}
