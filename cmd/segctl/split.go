package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danthegoodman1/marksplit/datastore"
	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/planner"
)

func init() {
	rootCmd.AddCommand(splitCmd)

	defaults := planner.DefaultsFromEnv()
	splitCmd.Flags().StringVar(&flagInput, "input", "-", "JSON array of part ranges, - for stdin")
	splitCmd.Flags().StringVar(&flagDir, "dir", "", "plan every part of --table found under this directory instead of --input")
	splitCmd.Flags().StringVar(&flagTable, "table", "", "")
	splitCmd.Flags().Uint64Var(&flagGranularity, "granularity", defaults.Granularity, "rows per mark")
	splitCmd.Flags().Uint64Var(&flagMinSegmentSize, "min-segment-size", defaults.MinSegmentSize, "minimum marks per segment")
	splitCmd.Flags().Uint64Var(&flagMaxSegments, "max-segments", defaults.MaxSegmentsCount, "")
	splitCmd.Flags().Uint64Var(&flagReplica, "replica", 0, "index of this replica")
	splitCmd.Flags().Uint64Var(&flagReplicas, "replicas", 1, "number of replicas sharing the work")
}

var (
	flagInput          string
	flagDir            string
	flagTable          string
	flagGranularity    uint64
	flagMinSegmentSize uint64
	flagMaxSegments    uint64
	flagReplica        uint64
	flagReplicas       uint64
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Cut mark ranges into balanced segments and print the plan as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSplit(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin())
	},
}

func runSplit(ctx context.Context, out io.Writer, stdin io.Reader) error {
	p := &planner.Planner{Sources: map[string]planner.PartSource{}}
	req := planner.PlanRequest{
		Table:            flagTable,
		Granularity:      &flagGranularity,
		MinSegmentSize:   &flagMinSegmentSize,
		MaxSegmentsCount: &flagMaxSegments,
		ReplicaIndex:     flagReplica,
		ReplicasCount:    flagReplicas,
	}

	if flagDir != "" {
		if flagTable == "" {
			return errors.New("--dir needs --table")
		}
		dds, err := datastore.NewDiskDataStore(flagDir, flagGranularity)
		if err != nil {
			return fmt.Errorf("error in NewDiskDataStore: %w", err)
		}
		p.Sources["disk"] = dds
		req.Source = "disk"
	} else {
		parts, err := readInput(stdin)
		if err != nil {
			return err
		}
		req.Parts = parts
	}

	plan, err := p.Plan(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func readInput(stdin io.Reader) ([]part.PartRanges, error) {
	r := stdin
	if flagInput != "-" {
		f, err := os.Open(flagInput)
		if err != nil {
			return nil, fmt.Errorf("error in os.Open: %w", err)
		}
		defer f.Close()
		r = f
	}

	var parts []part.PartRanges
	if err := json.NewDecoder(r).Decode(&parts); err != nil {
		return nil, fmt.Errorf("error decoding input: %w", err)
	}
	return parts, nil
}
