package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_IsAuthorized(t *testing.T) {
	tests := []struct {
		name    string
		allowed []int64
		user    int64
		want    bool
	}{
		{"empty list denies everyone", nil, 1, false},
		{"member", []int64{1, 2}, 2, true},
		{"stranger", []int64{1, 2}, 3, false},
		{"zero id is not special", []int64{5}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewGate(tt.allowed).IsAuthorized(tt.user))
		})
	}
}

func TestGate_NilIsClosed(t *testing.T) {
	var g *Gate

	assert.False(t, g.IsAuthorized(1))
	assert.Empty(t, g.Recipients())
}

func TestGate_RecipientsAreDedupedCopies(t *testing.T) {
	g := NewGate([]int64{3, 1, 3})

	got := g.Recipients()
	assert.Equal(t, []int64{3, 1}, got)

	got[0] = 99
	assert.Equal(t, []int64{3, 1}, g.Recipients())
}
