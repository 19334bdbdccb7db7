// Command coordinator runs the MapReduce coordinator against a fixed set
// of input files, served over RPC until every map and reduce task has
// completed.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gomr/gomr/mapreduce"
)

func main() {
	host := flag.String("host", mapreduce.DefaultHost, "listen host")
	port := flag.Int("port", mapreduce.DefaultPort, "listen port")
	nReduce := flag.Int("n_reduce", 0, "number of reduce partitions (0 = number of input files)")
	taskWaitMs := flag.Int("task_wait_ms", mapreduce.DefaultTaskWaitMs, "milliseconds before a dispatched task is presumed lost")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "coordinator: at least one input file is required")
		os.Exit(1)
	}

	c := mapreduce.NewCoordinator(files,
		mapreduce.WithNReduce(*nReduce),
		mapreduce.WithTaskWaitMs(*taskWaitMs),
	)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	if err := c.Start(addr); err != nil {
		logrus.WithError(err).Fatal("coordinator: failed to start")
	}

	c.Wait()
	stats := c.Stats()
	logrus.WithFields(logrus.Fields{
		"dispatches":         stats.Dispatches,
		"timeouts":           stats.Timeouts,
		"late_notifications": stats.LateNotifications,
	}).Info("coordinator: run complete")
}
