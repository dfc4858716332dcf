package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountToCents(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{1380.07, 138007}, // float form is 1380.0699...; truncation loses a cent
		{1380.00, 138000},
		{0.01, 1},
		{0, 0},
		{19.99, 1999},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, amountToCents(tt.amount))
	}
}
