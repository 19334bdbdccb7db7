package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, Bucket("aaa", 5), Bucket("aaa", 5))
	}
}

func TestBucketInRange(t *testing.T) {
	keys := []string{"aaa", "bbb", "ccc", "bcc", "aca", "abc", "", "a very long key with spaces stripped later"}
	for _, k := range keys {
		b := Bucket(k, 5)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 5)
	}
}

func TestBucketDistributesDifferentKeys(t *testing.T) {
	// Not a strict correctness requirement, but a sanity check that the
	// hash isn't degenerate (e.g. always returning 0).
	seen := make(map[int]bool)
	for i := 0; i < 50; i++ {
		seen[Bucket(string(rune('a'+i%26))+string(rune(i)), 7)] = true
	}
	assert.Greater(t, len(seen), 1)
}
