package mapreduce

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gomr/gomr/blobstore"
	"github.com/gomr/gomr/job"
)

// RunSequential is the single-process correctness oracle: it applies Map
// to every input file, sorts all resulting pairs globally by key, groups
// them, applies Reduce once per key, and writes a single mr-out-sequential
// blob. It never touches the coordinator/worker RPC path and exists purely
// so a distributed run's output can be diffed against it.
//
// File reads fan out one goroutine per file; the defining property of the
// oracle is the global sort that follows, so concurrent map order has no
// bearing on the result.
func RunSequential(files []string, blobs blobstore.Blobs, j job.Job) error {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var all []job.KV

	for _, fname := range files {
		wg.Add(1)
		go func(fname string) {
			defer wg.Done()

			content, err := blobs.Read(fname)
			if err != nil {
				logrus.WithError(err).WithField("fname", fname).Error("sequential: failed to read input")
				return
			}

			kvs := j.Map(fname, string(content))
			mu.Lock()
			all = append(all, kvs...)
			mu.Unlock()
		}(fname)
	}
	wg.Wait()

	sort.Slice(all, func(i, k int) bool { return all[i].Key < all[k].Key })

	var buf bytes.Buffer
	i := 0
	for i < len(all) {
		end := i + 1
		values := []string{all[i].Value}
		for end < len(all) && all[end].Key == all[i].Key {
			values = append(values, all[end].Value)
			end++
		}
		result := j.Reduce(all[i].Key, values)
		fmt.Fprintf(&buf, "%s %s\n", all[i].Key, result)
		i = end
	}

	if err := blobs.Write("mr-out-sequential", buf.Bytes()); err != nil {
		return errors.Wrap(err, "sequential: write output")
	}
	return nil
}
