package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"math/rand/v2"
)

// Namespace is the HMAC key shared by every stream. Changing it changes every
// generated point set, so it is part of EngineVersion.
const Namespace = "galaxy-fractals"

// EngineVersion identifies the stream layout recorded alongside each run.
const EngineVersion = "go-1.0.0"

// Kind selects the random source behind NewRand.
type Kind string

const (
	// KindHMAC streams HMAC-SHA256 output and is reproducible byte for byte
	// on every platform and Go release.
	KindHMAC Kind = "hmac"

	// KindPCG uses math/rand/v2's PCG seeded from the label and seed.
	KindPCG Kind = "pcg"
)

// ParseKind returns the Kind for s, defaulting to KindHMAC for "".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindHMAC:
		return KindHMAC, nil
	case KindPCG:
		return KindPCG, nil
	default:
		return "", fmt.Errorf("unknown random source %q", s)
	}
}

// Stream generates a deterministic byte stream from HMAC-SHA256 rounds keyed
// by Namespace over "<label>:<seed>:<round>".
type Stream struct {
	mac          hash.Hash
	label        string
	seed         uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewStream creates a stream positioned at cursor (in bytes).
func NewStream(label string, seed uint64, cursor uint64) *Stream {
	s := &Stream{
		mac:          hmac.New(sha256.New, []byte(Namespace)),
		label:        label,
		seed:         seed,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}

	s.generateRound()

	return s
}

// Next returns the next byte from the stream
func (s *Stream) Next() byte {
	if s.currentPos >= 32 {
		s.currentRound++
		s.currentPos = 0
		s.generateRound()
	}

	b := s.buffer[s.currentPos]
	s.currentPos++
	return b
}

// Uint64 consumes 8 bytes, big endian. It makes Stream a rand.Source.
func (s *Stream) Uint64() uint64 {
	var b [8]byte
	for i := range b {
		b[i] = s.Next()
	}
	return binary.BigEndian.Uint64(b[:])
}

func (s *Stream) generateRound() {
	s.mac.Reset()
	fmt.Fprintf(s.mac, "%s:%d:%d", s.label, s.seed, s.currentRound)
	copy(s.buffer[:], s.mac.Sum(nil))
}

// NewRand returns a random generator for one run. label is normally the model
// ID so that different models never share a stream for the same seed.
func NewRand(kind Kind, label string, seed uint64) *rand.Rand {
	if kind == KindPCG {
		return rand.New(rand.NewPCG(seed, labelHash(label)))
	}
	return rand.New(NewStream(label, seed, 0))
}

func labelHash(label string) uint64 {
	sum := sha256.Sum256([]byte(Namespace + ":" + label))
	return binary.BigEndian.Uint64(sum[:8])
}
