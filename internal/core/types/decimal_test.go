package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineAmount(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		price    string
		want     string
	}{
		{"exact", 3, "10.50", "31.5"},
		{"half rounds up", 1, "0.125", "0.13"},
		{"below half rounds down", 1, "0.124", "0.12"},
		{"multiplied then rounded", 3, "0.335", "1.01"},
		{"zero price", 5, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineAmount(tt.quantity, MustMoney(tt.price))
			assert.True(t, got.Equal(MustMoney(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestSum(t *testing.T) {
	got := Sum(MustMoney("1.10"), MustMoney("2.20"), MustMoney("0.005"))
	assert.Equal(t, "3.31", got.StringFixed(2))
	assert.True(t, Sum().IsZero())
}
