package utils

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"
)

var objectIDCounter uint32

// GenerateID generates a 12-byte ObjectID-like string (24 hex characters).
func GenerateID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(b[4:9])
	c := atomic.AddUint32(&objectIDCounter, 1) % 0xFFFFFF
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}

// ShortID returns the last 8 hex characters of a fresh ID, for log prefixes.
func ShortID() string {
	id := GenerateID()
	return id[len(id)-8:]
}

// GenerateStopKeyword returns a random token unlikely to appear in model output by
// accident, e.g. "STOP_9F3A61C2D0E4".
func GenerateStopKeyword() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return "STOP_" + strings.ToUpper(hex.EncodeToString(b[:]))
}
