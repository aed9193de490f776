package engine

import (
	"encoding/binary"
	"math/bits"
)

// maxSWARLeads bounds the number of distinct trigger bytes for which the
// 8-byte word skip is used. Past that the per-byte table lookup wins.
const maxSWARLeads = 6

const (
	loMask = 0x0101010101010101
	hiMask = 0x8080808080808080
)

// leadSet finds the next trigger byte in a buffer.
type leadSet struct {
	trigger *[256]bool
	bcast   []uint64
}

func newLeadSet(trigger *[256]bool) leadSet {
	s := leadSet{trigger: trigger}
	var leads []uint64
	for b := 0; b < 256; b++ {
		if trigger[b] {
			leads = append(leads, uint64(b)*loMask)
		}
	}
	if len(leads) <= maxSWARLeads {
		s.bcast = leads
	}
	return s
}

// index returns the position of the first trigger byte in b, or -1.
//
// Whole words without any trigger are skipped with SWAR: each lead byte is
// broadcast to all 8 lanes, XORed with the word, and the null-byte trick
// ((x - 0x01..01) & ^x & 0x80..80) flags lanes that matched.
func (s *leadSet) index(b []byte) int {
	i := 0
	if s.bcast != nil {
		for i+8 <= len(b) {
			w := binary.LittleEndian.Uint64(b[i:])
			if hasAnyLead(w, s.bcast) {
				if p := firstLead(w, s.bcast); p >= 0 {
					return i + p
				}
				break
			}
			i += 8
		}
	}
	for ; i < len(b); i++ {
		if s.trigger[b[i]] {
			return i
		}
	}
	return -1
}

// hasAnyLead reports whether any byte of w equals one of the broadcast leads.
func hasAnyLead(w uint64, bcast []uint64) bool {
	var combined uint64
	for _, m := range bcast {
		x := w ^ m
		combined |= (x - loMask) & ^x & hiMask
	}
	return combined != 0
}

// firstLead returns the lowest lane of w holding a lead byte, or -1. Borrow
// propagation can flag lanes above a true match but never below the first
// one, so the lowest flagged lane is exact.
func firstLead(w uint64, bcast []uint64) int {
	best := -1
	for _, m := range bcast {
		x := w ^ m
		r := (x - loMask) & ^x & hiMask
		if r == 0 {
			continue
		}
		p := bits.TrailingZeros64(r) / 8
		if best < 0 || p < best {
			best = p
		}
	}
	return best
}
