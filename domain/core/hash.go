package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// BrickHash fingerprints a brick's dims and channel samples
type BrickHash Hash

func (h BrickHash) String() string { return Hash(h).String() }

// ComputeBrickHash hashes dims followed by each channel's raw float32 bits in order
func ComputeBrickHash(dims [3]int, channels ...[]float32) BrickHash {
	h := sha256.New()
	var buf [8]byte
	for _, d := range dims {
		binary.LittleEndian.PutUint64(buf[:], uint64(d))
		h.Write(buf[:])
	}
	for _, ch := range channels {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(ch)))
		h.Write(buf[:])
		for _, v := range ch {
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
			h.Write(buf[:4])
		}
	}
	return BrickHash(hex.EncodeToString(h.Sum(nil)))
}
