// Command worker polls a coordinator for map/reduce tasks and executes
// them against the current working directory's blob store until the
// coordinator reports DONE or it gives up reaching it.
package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gomr/gomr/blobstore"
	"github.com/gomr/gomr/job"
	"github.com/gomr/gomr/mapreduce"
)

func main() {
	host := flag.String("host", mapreduce.DefaultHost, "coordinator host")
	port := flag.Int("port", mapreduce.DefaultPort, "coordinator port")
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	blobs := blobstore.NewDisk(".")

	w, err := mapreduce.NewWorker(addr, blobs, job.WordCount{})
	if err != nil {
		logrus.WithError(err).Fatal("worker: failed to connect")
	}
	defer w.Close()

	w.Run()
	logrus.Info("worker: exiting")
}
