package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/kartikbazzad/deltalog"
	"github.com/kartikbazzad/deltalog/internal/logger"
	"github.com/kartikbazzad/deltalog/internal/storage/localfs"
)

const prompt = "deltash> "

func main() {
	tablePath := flag.String("table", "", "table path to open (required)")
	flag.Parse()
	if *tablePath == "" {
		fmt.Fprintln(os.Stderr, "usage: deltash -table <path>")
		os.Exit(1)
	}

	logr := logger.Default()
	ctx := context.Background()
	backend := localfs.New(".")
	dt, err := deltalog.Open(ctx, backend, *tablePath, deltalog.WithLogger(logr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *tablePath, err)
		os.Exit(1)
	}

	fmt.Printf("deltash - read-only snapshot shell\n")
	fmt.Printf("table: %s (version %d)\n", dt.TablePath(), dt.Version())
	fmt.Printf("type .help for commands\n\n")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if exit := dispatch(ctx, dt, input); exit {
			return
		}
	}
}

// dispatch executes one shell line against dt, returning true when the
// shell should exit.
func dispatch(ctx context.Context, dt *deltalog.DeltaTable, input string) bool {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ".quit", ".exit":
		return true
	case ".help":
		printHelp()
	case ".version":
		fmt.Println(dt.Version())
	case ".info":
		printInfo(dt)
	case ".files":
		printFiles(dt)
	case ".tombstones":
		printTombstones(dt)
	case ".update":
		if err := dt.Update(ctx); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			break
		}
		fmt.Printf("now at version %d\n", dt.Version())
	case ".load":
		runLoad(ctx, dt, args)
	case ".vacuum":
		runVacuum(ctx, dt, args)
	default:
		fmt.Printf("unknown command %q, type .help\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Println(`commands:
  .info                show table metadata
  .files                list live data files
  .tombstones           list removed files still in the log window
  .version              print the loaded version
  .update               refresh to the latest version
  .load <version>       pin the snapshot to a specific version
  .vacuum <hours>       dry-run a vacuum plan at the given retention
  .quit, .exit          leave the shell`)
}

func printInfo(dt *deltalog.DeltaTable) {
	fmt.Printf("path:    %s\n", dt.TablePath())
	fmt.Printf("version: %d\n", dt.Version())
	md, err := dt.Metadata()
	if err != nil {
		fmt.Printf("metadata: none committed yet (%v)\n", err)
		return
	}
	fmt.Printf("id:      %s\n", md.ID)
	fmt.Printf("format:  %s\n", md.Format.Provider)
	if len(md.PartitionColumns) > 0 {
		fmt.Printf("partitionColumns: %v\n", md.PartitionColumns)
	}
}

func printFiles(dt *deltalog.DeltaTable) {
	files := dt.Files()
	for _, a := range files {
		fmt.Println(a.Path)
	}
	fmt.Printf("(%d files)\n", len(files))
}

func printTombstones(dt *deltalog.DeltaTable) {
	tombstones := dt.Tombstones()
	for _, r := range tombstones {
		fmt.Println(r.Path)
	}
	fmt.Printf("(%d tombstones)\n", len(tombstones))
}

func runLoad(ctx context.Context, dt *deltalog.DeltaTable, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: .load <version>")
		return
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid version %q: %v\n", args[0], err)
		return
	}
	if err := dt.LoadVersion(ctx, v); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return
	}
	fmt.Printf("now at version %d\n", dt.Version())
}

func runVacuum(ctx context.Context, dt *deltalog.DeltaTable, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: .vacuum <retention-hours>")
		return
	}
	hours, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid retention %q: %v\n", args[0], err)
		return
	}
	plan, err := dt.Vacuum(ctx, hours, true)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return
	}
	for _, c := range plan.Candidates {
		fmt.Println(c)
	}
	fmt.Printf("(%d candidates, dry run - nothing deleted)\n", len(plan.Candidates))
}
