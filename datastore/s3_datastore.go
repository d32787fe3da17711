package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	lru "github.com/hashicorp/golang-lru/v2"
	pqs3 "github.com/xitongsys/parquet-go-source/s3"
	"github.com/xitongsys/parquet-go/source"
	"golang.org/x/sync/errgroup"

	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/utils"
)

const (
	footerCacheSize   = 4096
	footerConcurrency = 8
)

type (
	S3DataStore struct {
		client      s3iface.S3API
		bucket      string
		granularity uint64

		// footers maps key@etag to row count, a rewritten object gets a new etag
		footers *lru.Cache[string, int64]
		open    func(ctx context.Context, key string) (source.ParquetFile, error)
	}
)

func NewS3DataStore(client s3iface.S3API, bucket string, granularity uint64) (*S3DataStore, error) {
	footers, err := lru.New[string, int64](footerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("error in lru.New: %w", err)
	}

	sds := &S3DataStore{
		client:      client,
		bucket:      bucket,
		granularity: granularity,
		footers:     footers,
	}
	sds.open = func(ctx context.Context, key string) (source.ParquetFile, error) {
		return pqs3.NewS3FileReaderWithClient(ctx, sds.client, sds.bucket, key)
	}

	return sds, nil
}

func (sds *S3DataStore) ListParts(ctx context.Context, table string) ([]part.Part, error) {
	prefix := table + "/"

	var objects []*s3.Object
	err := sds.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(sds.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			if strings.HasSuffix(aws.StringValue(obj.Key), partExt) {
				objects = append(objects, obj)
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("error in ListObjectsV2PagesWithContext: %w", err)
	}
	sort.Slice(objects, func(i, j int) bool {
		return aws.StringValue(objects[i].Key) < aws.StringValue(objects[j].Key)
	})

	parts := make([]part.Part, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(footerConcurrency)
	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			key := aws.StringValue(obj.Key)
			rows, err := sds.rowCount(gctx, key, aws.StringValue(obj.ETag))
			if err != nil {
				return fmt.Errorf("error reading footer of %s: %w", key, err)
			}
			createdAt := aws.TimeValue(obj.LastModified)
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			parts[i] = newPart(table, strings.TrimPrefix(key, prefix), rows, sds.granularity, createdAt.UTC())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug().Str("table", table).Int("parts", len(parts)).Msg("listed s3 parts")
	return utils.ArrayOrEmpty(parts), nil
}

func (sds *S3DataStore) rowCount(ctx context.Context, key, etag string) (int64, error) {
	cacheKey := key + "@" + etag
	if rows, ok := sds.footers.Get(cacheKey); ok {
		return rows, nil
	}

	pf, err := sds.open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("error opening part: %w", err)
	}
	defer pf.Close()

	rows, err := footerRowCount(pf)
	if err != nil {
		return 0, err
	}
	sds.footers.Add(cacheKey, rows)
	return rows, nil
}

func (sds *S3DataStore) Shutdown(context.Context) error {
	sds.footers.Purge()
	return nil
}
