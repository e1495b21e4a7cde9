package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/kartikbazzad/deltalog"
	"github.com/kartikbazzad/deltalog/internal/logger"
	"github.com/kartikbazzad/deltalog/internal/storage"
	"github.com/kartikbazzad/deltalog/internal/storage/localfs"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: deltainspect <command> [flags] <table-path>\n\n")
	fmt.Fprintf(os.Stderr, "commands:\n")
	fmt.Fprintf(os.Stderr, "  info <path>                        dump table metadata\n")
	fmt.Fprintf(os.Stderr, "  files <path> [-version V] [-full-path]   list live data files\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logr := logger.Default()

	switch os.Args[1] {
	case "info":
		runInfo(logr, os.Args[2:])
	case "files":
		runFiles(logr, os.Args[2:])
	case "-h", "-help", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// openTable rooted the localfs backend at the current directory and
// treats tablePath as the table's key relative to it, so the same
// storage.Backend contract the tests exercise against memstore governs
// here too.
func openTable(ctx context.Context, logr *logger.Logger, tablePath string) (*deltalog.DeltaTable, storage.Backend) {
	backend := localfs.New(".")
	dt, err := deltalog.Open(ctx, backend, tablePath, deltalog.WithLogger(logr))
	if err != nil {
		logr.Error("open table", logger.Str("path", tablePath), logger.Err(err))
		os.Exit(1)
	}
	return dt, backend
}

func runInfo(logr *logger.Logger, args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Usage = usage
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	tablePath := fs.Arg(0)

	ctx := context.Background()
	dt, _ := openTable(ctx, logr, tablePath)

	fmt.Printf("path:    %s\n", dt.TablePath())
	fmt.Printf("version: %d\n", dt.Version())

	md, err := dt.Metadata()
	if err != nil {
		fmt.Printf("metadata: none committed yet (%v)\n", err)
		return
	}
	fmt.Printf("id:      %s\n", md.ID)
	if md.Name != "" {
		fmt.Printf("name:    %s\n", md.Name)
	}
	fmt.Printf("format:  %s\n", md.Format.Provider)
	if len(md.PartitionColumns) > 0 {
		fmt.Printf("partitionColumns: %v\n", md.PartitionColumns)
	}

	schema, err := dt.Schema()
	if err != nil {
		fmt.Printf("schema:  none (%v)\n", err)
	} else {
		fmt.Printf("schema:  %d fields\n", len(schema.Fields))
		for _, f := range schema.Fields {
			nullable := ""
			if !f.Nullable {
				nullable = " not null"
			}
			fmt.Printf("  - %s: %s%s\n", f.Name, f.Type, nullable)
		}
	}

	files := dt.Files()
	var totalSize int64
	for _, a := range files {
		totalSize += a.Size
	}
	fmt.Printf("files:   %d (%s)\n", len(files), humanize.Bytes(uint64(totalSize)))
	fmt.Printf("tombstones: %d\n", len(dt.Tombstones()))
}

func runFiles(logr *logger.Logger, args []string) {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	version := fs.Int64("version", -1, "table version to inspect (default: latest)")
	fullPath := fs.Bool("full-path", false, "print files joined with the table path")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	tablePath := fs.Arg(0)
	// Flags may also follow the table path.
	if err := fs.Parse(fs.Args()[1:]); err != nil || fs.NArg() != 0 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	dt, backend := openTable(ctx, logr, tablePath)

	if *version >= 0 {
		if err := dt.LoadVersion(ctx, *version); err != nil {
			logr.Error("load version", logger.Int64("version", *version), logger.Err(err))
			os.Exit(1)
		}
	}

	for _, a := range dt.Files() {
		if *fullPath {
			fmt.Println(backend.JoinPath(dt.TablePath(), a.Path))
		} else {
			fmt.Println(a.Path)
		}
	}
}
