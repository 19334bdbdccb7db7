// Package partition implements the shuffle contract's key-to-bucket
// assignment: a deterministic hash shared by every worker and the
// sequential oracle so that distributed output equals sequential output.
package partition

import "hash/fnv"

// Bucket returns the reduce bucket for key under nReduce partitions.
// Uses FNV-1a 32-bit, a fixed, deterministic hash stable across processes
// and across the distributed and sequential code paths.
func Bucket(key string, nReduce int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(nReduce))
}
