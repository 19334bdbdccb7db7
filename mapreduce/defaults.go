package mapreduce

import "time"

// Defaults mirror the CLI surface's documented flag defaults.
const (
	DefaultHost         = "localhost"
	DefaultPort         = 50051
	DefaultTaskWaitMs   = 5000
	DefaultWorkerWaitMs = 500
	DefaultMaxRetries   = 3
)

const defaultTaskWait = DefaultTaskWaitMs * time.Millisecond
const defaultWorkerWait = DefaultWorkerWaitMs * time.Millisecond
