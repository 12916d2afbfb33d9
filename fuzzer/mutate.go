package fuzzer

import (
	"math/rand"
)

// Mutator derives new inputs from corpus entries. It is deterministic for a
// given seed, which keeps crash reproduction possible from a run's log line.
// Not safe for concurrent use; the driver is single-threaded by design.
type Mutator struct {
	rnd    *rand.Rand
	maxLen int
}

// NewMutator builds a mutator with a fixed seed and an output size cap.
func NewMutator(seed int64, maxLen int) *Mutator {
	if maxLen <= 0 {
		maxLen = 1 << 20
	}
	return &Mutator{
		rnd:    rand.New(rand.NewSource(seed)),
		maxLen: maxLen,
	}
}

// Mutate produces a new input from base, occasionally splicing in material
// from other. The result length never exceeds the cap; base and other are
// never modified.
func (m *Mutator) Mutate(base, other []byte) []byte {
	data := make([]byte, len(base))
	copy(data, base)

	// 1-4 stacked mutations per derivation.
	rounds := 1 + m.rnd.Intn(4)
	for i := 0; i < rounds; i++ {
		switch m.rnd.Intn(7) {
		case 0:
			data = m.flipBit(data)
		case 1:
			data = m.setByte(data)
		case 2:
			data = m.insertByte(data)
		case 3:
			data = m.deleteByte(data)
		case 4:
			data = m.duplicateBlock(data)
		case 5:
			data = m.splice(data, other)
		case 6:
			data = m.truncate(data)
		}
	}

	if len(data) > m.maxLen {
		data = data[:m.maxLen]
	}
	return data
}

func (m *Mutator) flipBit(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	pos := m.rnd.Intn(len(data))
	data[pos] ^= 1 << uint(m.rnd.Intn(8))
	return data
}

func (m *Mutator) setByte(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	data[m.rnd.Intn(len(data))] = byte(m.rnd.Intn(256))
	return data
}

func (m *Mutator) insertByte(data []byte) []byte {
	if len(data) >= m.maxLen {
		return data
	}
	pos := m.rnd.Intn(len(data) + 1)
	b := byte(m.rnd.Intn(256))
	data = append(data, 0)
	copy(data[pos+1:], data[pos:])
	data[pos] = b
	return data
}

func (m *Mutator) deleteByte(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	pos := m.rnd.Intn(len(data))
	return append(data[:pos], data[pos+1:]...)
}

// duplicateBlock copies a random block of the input to a random position.
func (m *Mutator) duplicateBlock(data []byte) []byte {
	if len(data) == 0 || len(data) >= m.maxLen {
		return data
	}
	start := m.rnd.Intn(len(data))
	length := 1 + m.rnd.Intn(len(data)-start)
	if len(data)+length > m.maxLen {
		length = m.maxLen - len(data)
	}
	if length <= 0 {
		return data
	}
	block := make([]byte, length)
	copy(block, data[start:start+length])
	pos := m.rnd.Intn(len(data) + 1)
	out := make([]byte, 0, len(data)+length)
	out = append(out, data[:pos]...)
	out = append(out, block...)
	out = append(out, data[pos:]...)
	return out
}

// splice replaces the tail of data with the tail of another corpus entry.
func (m *Mutator) splice(data, other []byte) []byte {
	if len(other) == 0 {
		return data
	}
	cutA := m.rnd.Intn(len(data) + 1)
	cutB := m.rnd.Intn(len(other))
	out := make([]byte, 0, cutA+len(other)-cutB)
	out = append(out, data[:cutA]...)
	out = append(out, other[cutB:]...)
	if len(out) > m.maxLen {
		out = out[:m.maxLen]
	}
	return out
}

func (m *Mutator) truncate(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	return data[:m.rnd.Intn(len(data))]
}
