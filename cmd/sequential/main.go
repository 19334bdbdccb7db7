// Command sequential runs the single-process correctness oracle over a
// set of input files, writing mr-out-sequential to the working directory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomr/gomr/blobstore"
	"github.com/gomr/gomr/job"
	"github.com/gomr/gomr/mapreduce"
)

func main() {
	flag.Parse()
	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "sequential: at least one input file is required")
		os.Exit(1)
	}

	blobs := blobstore.NewDisk(".")
	if err := mapreduce.RunSequential(files, blobs, job.WordCount{}); err != nil {
		fmt.Fprintln(os.Stderr, "sequential:", err)
		os.Exit(1)
	}
}
