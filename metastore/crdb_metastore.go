package metastore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/utils"
)

const tryTimeout = time.Second * 10

type (
	CRDBMetaStore struct {
		pool *pgxpool.Pool
	}
)

func NewCRDBMetaStore(pool *pgxpool.Pool) *CRDBMetaStore {
	return &CRDBMetaStore{pool: pool}
}

func (cms *CRDBMetaStore) ListParts(ctx context.Context, table string) ([]part.Part, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("table", table).Msg("listing parts")

	var parts []part.Part
	err := utils.ReliableExec(ctx, cms.pool, tryTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		parts = parts[:0]
		rows, err := conn.Query(ctx, `
			SELECT part_id, partition, row_count, marks, alive, created_at
			FROM known_parts
			WHERE table_name = $1 AND alive = true
			ORDER BY partition, part_id
		`, table)
		if err != nil {
			return fmt.Errorf("error in conn.Query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			p := part.Part{Table: table}
			var marks int64
			if err := rows.Scan(&p.ID, &p.Partition, &p.RowCount, &marks, &p.Alive, &p.CreatedAt); err != nil {
				return fmt.Errorf("error in rows.Scan: %w", err)
			}
			p.Marks = uint64(marks)
			parts = append(parts, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("error listing parts of table '%s': %w", table, err)
	}

	logger.Debug().Str("table", table).Int("parts", len(parts)).Msg("listed parts")
	return utils.ArrayOrEmpty(parts), nil
}

func (cms *CRDBMetaStore) CreatePart(ctx context.Context, p part.Part) (part.Part, error) {
	if p.ID == "" {
		p.ID = utils.GenRandomID("part_")
	}
	p.Alive = true

	err := utils.ReliableExecInTx(ctx, cms.pool, tryTimeout, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			UPSERT INTO known_parts (table_name, partition, part_id, row_count, marks, alive)
			VALUES ($1, $2, $3, $4, $5, true)
			RETURNING created_at
		`, p.Table, p.Partition, p.ID, p.RowCount, int64(p.Marks)).Scan(&p.CreatedAt)
	})
	if err != nil {
		return part.Part{}, fmt.Errorf("error creating part '%s' of table '%s': %w", p.ID, p.Table, err)
	}

	zerolog.Ctx(ctx).Debug().Str("table", p.Table).Str("partID", p.ID).Uint64("marks", p.Marks).Msg("created part")
	return p, nil
}

func (cms *CRDBMetaStore) Shutdown(_ context.Context) error {
	logger.Debug().Msg("closing CRDB pool")
	cms.pool.Close()
	return nil
}
