package metastore

import (
	"context"

	"github.com/danthegoodman1/marksplit/gologger"
	"github.com/danthegoodman1/marksplit/part"
)

var (
	logger = gologger.NewComponentLogger("metastore")
)

type (
	// MetaStore is the catalog of parts registered for each table
	MetaStore interface {
		// ListParts lists the alive parts of a table, ordered by partition then part ID
		ListParts(ctx context.Context, table string) ([]part.Part, error)

		// CreatePart registers a part, generating its ID when empty
		CreatePart(ctx context.Context, p part.Part) (part.Part, error)

		Shutdown(ctx context.Context) error
	}
)
