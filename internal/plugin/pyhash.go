package plugin

import (
	"encoding/binary"
	"math/big"
	"math/bits"
)

// pyHash returns the hash CPython 3.11+ computes for a bytes object when
// hash randomisation is disabled (PYTHONHASHSEED=0): SipHash-1-3 keyed with
// zeros, with -1 reserved.
func pyHash(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	h := int64(sipHash13(0, 0, data))
	if h == -1 {
		h = -2
	}
	return h
}

func sipHash13(k0, k1 uint64, data []byte) uint64 {
	v0 := k0 ^ 0x736f6d6570736575
	v1 := k1 ^ 0x646f72616e646f6d
	v2 := k0 ^ 0x6c7967656e657261
	v3 := k1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = bits.RotateLeft64(v1, 13)
		v1 ^= v0
		v0 = bits.RotateLeft64(v0, 32)
		v2 += v3
		v3 = bits.RotateLeft64(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = bits.RotateLeft64(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = bits.RotateLeft64(v1, 17)
		v1 ^= v2
		v2 = bits.RotateLeft64(v2, 32)
	}

	b := uint64(len(data)) << 56
	for len(data) >= 8 {
		m := binary.LittleEndian.Uint64(data)
		v3 ^= m
		round()
		v0 ^= m
		data = data[8:]
	}
	for i, c := range data {
		b |= uint64(c) << (8 * i)
	}
	v3 ^= b
	round()
	v0 ^= b

	v2 ^= 0xff
	round()
	round()
	round()
	return v0 ^ v1 ^ v2 ^ v3
}

// absHash is |pyHash(data)| as an arbitrary precision integer.
func absHash(data []byte) *big.Int {
	n := big.NewInt(pyHash(data))
	return n.Abs(n)
}

// digitSum returns the sum of the decimal digits of |n|.
func digitSum(n *big.Int) int {
	sum := 0
	for _, c := range new(big.Int).Abs(n).String() {
		sum += int(c - '0')
	}
	return sum
}

// stageIndex derives the index of a quest log entry from the stage it
// belongs to and the conditions that precede it.
func stageIndex(stage []byte, conditions [][]byte) int {
	st := absHash(stage)
	if len(conditions) == 0 {
		return digitSum(st)
	}
	sum := new(big.Int)
	for _, c := range conditions {
		sum.Add(sum, absHash(c))
	}
	return digitSum(sum.Sub(sum, st))
}
