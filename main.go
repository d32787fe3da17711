package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/marksplit/crdb"
	"github.com/danthegoodman1/marksplit/datastore"
	"github.com/danthegoodman1/marksplit/gologger"
	"github.com/danthegoodman1/marksplit/http_server"
	"github.com/danthegoodman1/marksplit/metastore"
	"github.com/danthegoodman1/marksplit/migrations"
	"github.com/danthegoodman1/marksplit/planner"
	"github.com/danthegoodman1/marksplit/s3_helper"
	"github.com/danthegoodman1/marksplit/utils"
)

var logger = gologger.NewLogger()

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func main() {
	logger.Debug().Msg("starting marksplit")

	p := &planner.Planner{
		Sources:    map[string]planner.PartSource{},
		Defaults:   planner.DefaultsFromEnv(),
		ArchiveAll: utils.PLAN_DUMP,
	}
	var (
		ms      metastore.MetaStore
		closers []shutdowner
	)

	err := crdb.ConnectToDB()
	switch {
	case errors.Is(err, crdb.ErrNoDSN):
		logger.Warn().Msg("CRDB_DSN not set, part registration disabled")
	case err != nil:
		logger.Error().Err(err).Msg("error connecting to CRDB")
		os.Exit(1)
	default:
		if err := migrations.CheckMigrations(utils.CRDB_DSN); err != nil {
			logger.Error().Err(err).Msg("Error checking migrations")
			os.Exit(1)
		}
		ms = metastore.NewCRDBMetaStore(crdb.PGPool)
		p.Sources["crdb"] = ms
		closers = append(closers, ms)
	}

	if utils.PARTS_DIR != "" {
		dds, err := datastore.NewDiskDataStore(utils.PARTS_DIR, p.Defaults.Granularity)
		if err != nil {
			logger.Error().Err(err).Msg("error creating disk data store")
			os.Exit(1)
		}
		p.Sources["disk"] = dds
		closers = append(closers, dds)
	}

	if utils.S3_BUCKET_NAME != "" {
		client, err := s3_helper.NewClient()
		if err != nil {
			logger.Error().Err(err).Msg("error creating s3 client")
			os.Exit(1)
		}
		sds, err := datastore.NewS3DataStore(client, utils.S3_BUCKET_NAME, p.Defaults.Granularity)
		if err != nil {
			logger.Error().Err(err).Msg("error creating s3 data store")
			os.Exit(1)
		}
		p.Sources["s3"] = sds
		p.Archiver = planner.NewS3Archiver()
		closers = append(closers, sds)
	}

	logger.Info().Interface("defaults", p.Defaults).Int("sources", len(p.Sources)).Msg("planner ready")

	httpServer := http_server.StartHTTPServer(p, ms)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	// Convert the time to seconds
	sleepTime := utils.GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}

	for _, closer := range closers {
		if err := closer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown store")
		}
	}
}
