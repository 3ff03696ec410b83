package subscription

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
)

type SubID string

var globalSubId atomic.Uint64

// generateSubID combines a process-wide counter with random bytes. The counter
// alone keeps IDs unique if the random source fails.
func generateSubID() SubID {
	var id [16]byte
	binary.LittleEndian.PutUint64(id[:8], globalSubId.Add(1))
	_, _ = rand.Read(id[8:])
	return SubID(hex.EncodeToString(id[:]))
}
