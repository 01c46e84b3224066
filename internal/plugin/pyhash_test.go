package plugin

import (
	"math/big"
	"testing"
)

func TestPyHash(t *testing.T) {
	cases := []struct {
		in   []byte
		want int64
	}{
		{nil, 0},
		{[]byte("a"), 4644417185603328019},
		{[]byte("abcdefgh"), 4574395652268504554},
		{[]byte{10, 0, 0, 0}, 7396300056459196583},
		{[]byte("CTDA-condition-data-123"), -1881864940827276717},
	}
	for _, tc := range cases {
		if got := pyHash(tc.in); got != tc.want {
			t.Errorf("pyHash(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDigitSum(t *testing.T) {
	if got := digitSum(big.NewInt(-1234)); got != 10 {
		t.Fatalf("digitSum(-1234) = %d", got)
	}
	if got := digitSum(new(big.Int)); got != 0 {
		t.Fatalf("digitSum(0) = %d", got)
	}
}

func seq(from, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(from + i)
	}
	return b
}

func TestStageIndex(t *testing.T) {
	stage := []byte{10, 0, 0, 0}
	c1, c2 := seq(0, 32), seq(32, 32)

	cases := []struct {
		name       string
		stage      []byte
		conditions [][]byte
		want       int
	}{
		{"no conditions", stage, nil, 89},
		{"one condition", stage, [][]byte{c1}, 84},
		{"two conditions", stage, [][]byte{c1, c2}, 89},
		{"other stage", []byte{20, 0, 0, 0}, [][]byte{c2}, 70},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stageIndex(tc.stage, tc.conditions); got != tc.want {
				t.Fatalf("stageIndex = %d, want %d", got, tc.want)
			}
		})
	}
}
