package utils

import (
	"os"
	"runtime"

	// .env has to be loaded before the variables below are read
	_ "github.com/joho/godotenv/autoload"
)

var (
	CRDB_DSN = os.Getenv("CRDB_DSN")

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")

	// PARTS_DIR enables the disk part catalog when set
	PARTS_DIR = os.Getenv("PARTS_DIR")

	GRANULARITY      = uint64(GetEnvOrDefaultInt("GRANULARITY", 8192))
	MIN_SEGMENT_SIZE = uint64(GetEnvOrDefaultInt("MIN_SEGMENT_SIZE", 1))
	MAX_SEGMENTS     = uint64(GetEnvOrDefaultInt("MAX_SEGMENTS", int64(runtime.NumCPU())))

	PLAN_DUMP = os.Getenv("PLAN_DUMP") == "1"
)
