package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// Tag returns a short identifier for log correlation ("req-a1b2c3d4").
// Entity IDs are UUIDs minted where rows are created; tags only tie
// together the log lines of one request or connection.
func Tag(prefix string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%s-%06d", prefix, seq.Add(1))
	}
	return prefix + "-" + hex.EncodeToString(b[:])
}

var seq atomic.Uint64
