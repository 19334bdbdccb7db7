package mapreduce

import (
	"bytes"
	"fmt"
	"net/rpc"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gomr/gomr/blobstore"
	"github.com/gomr/gomr/job"
	"github.com/gomr/gomr/partition"
)

// Worker repeatedly asks a coordinator for work, executes it against a
// blob store using pluggable user code, and reports completion. A worker
// that can't reach the coordinator at all retries a bounded number of
// times before presuming it dead and exiting.
type Worker struct {
	client *rpc.Client
	blobs  blobstore.Blobs
	job    job.Job

	workerWaitMs time.Duration
	maxRetries   int
	failCnt      int
}

// NewWorker dials host and returns a ready-to-run Worker.
func NewWorker(host string, blobs blobstore.Blobs, j job.Job, opts ...WorkerOption) (*Worker, error) {
	client, err := rpc.DialHTTPPath("tcp", host, rpc.DefaultRPCPath)
	if err != nil {
		return nil, errors.Wrapf(err, "worker: dial %s", host)
	}
	w := &Worker{
		client:       client,
		blobs:        blobs,
		job:          j,
		workerWaitMs: defaultWorkerWait,
		maxRetries:   DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Close releases the underlying RPC connection.
func (w *Worker) Close() error {
	return w.client.Close()
}

// Run polls for and executes tasks until told DONE or until it gives up on
// a coordinator it can no longer reach.
func (w *Worker) Run() {
	for {
		resp := w.requestTask()
		switch resp.State {
		case StateDone:
			return
		case StateWait:
			time.Sleep(w.workerWaitMs)
		case StateMap:
			if w.runMap(resp.MapTask) {
				w.notifyDone(resp.Token)
			}
		case StateReduce:
			if w.runReduce(resp.ReduceTask) {
				w.notifyDone(resp.Token)
			}
		}
	}
}

func (w *Worker) requestTask() TaskResponse {
	var reply TaskResponse
	if err := w.client.Call("Coordinator.RequestTask", &Empty{}, &reply); err != nil {
		w.failCnt++
		if w.failCnt >= w.maxRetries {
			logrus.WithError(err).Error("worker: coordinator unreachable, giving up")
			return TaskResponse{State: StateDone}
		}
		logrus.WithError(err).WithField("attempt", w.failCnt).Warn("worker: RequestTask failed, retrying")
		return TaskResponse{State: StateWait}
	}
	w.failCnt = 0
	return reply
}

func (w *Worker) notifyDone(token int64) {
	var reply Empty
	if err := w.client.Call("Coordinator.NotifyDone", &NotifyInfo{Token: token}, &reply); err != nil {
		logrus.WithError(err).WithField("token", token).Warn("worker: NotifyDone failed")
	}
}

// runMap executes a single map task, recovering from a panic in user code
// by logging and returning false: a worker whose user code fails must not
// report completion, leaving the coordinator's timeout to re-dispatch the
// task to a different attempt.
func (w *Worker) runMap(info *MapInfo) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("fname", info.Fname).Errorf("worker: map task panicked: %v", r)
			ok = false
		}
	}()

	content, err := w.blobs.Read(info.Fname)
	if err != nil {
		logrus.WithError(err).WithField("fname", info.Fname).Error("worker: failed to read map input")
		return false
	}

	kvs := w.job.Map(info.Fname, string(content))
	buckets := make([]bytes.Buffer, info.NReduce)
	for _, kv := range kvs {
		r := partition.Bucket(kv.Key, info.NReduce)
		fmt.Fprintf(&buckets[r], "%s %s\n", kv.Key, kv.Value)
	}

	for r := 0; r < info.NReduce; r++ {
		name := intermediateName(info.MapID, r)
		if err := w.blobs.Write(name, buckets[r].Bytes()); err != nil {
			logrus.WithError(err).WithField("name", name).Error("worker: failed to write map output")
			return false
		}
	}
	return true
}

// runReduce executes a single reduce task with the same panic-recovery
// contract as runMap. A missing intermediate partition blob is treated as
// empty, not as an error (runMap itself writes every partition, empty ones
// included).
func (w *Worker) runReduce(info *ReduceInfo) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("reduce_id", info.ReduceID).Errorf("worker: reduce task panicked: %v", r)
			ok = false
		}
	}()

	grouped := make(map[string][]string)
	var keys []string
	for m := 0; m < info.NMap; m++ {
		name := intermediateName(m, info.ReduceID)
		content, err := w.blobs.Read(name)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(content), "\n") {
			if line == "" {
				continue
			}
			key, value, found := strings.Cut(line, " ")
			if !found {
				continue
			}
			if _, seen := grouped[key]; !seen {
				keys = append(keys, key)
			}
			grouped[key] = append(grouped[key], value)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		result := w.job.Reduce(key, grouped[key])
		fmt.Fprintf(&buf, "%s %s\n", key, result)
	}

	name := reduceOutputName(info.ReduceID)
	if err := w.blobs.Write(name, buf.Bytes()); err != nil {
		logrus.WithError(err).WithField("name", name).Error("worker: failed to write reduce output")
		return false
	}
	return true
}

func intermediateName(mapID, reduceID int) string {
	return fmt.Sprintf("mr-%d-%d", mapID, reduceID)
}

func reduceOutputName(reduceID int) string {
	return fmt.Sprintf("mr-out-%d", reduceID)
}
