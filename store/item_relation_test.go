package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyStrength(t *testing.T) {
	tests := []struct {
		strength float64
		want     RelationLabel
	}{
		{100, RelationIdentical},
		{90, RelationIdentical},
		{89.99, RelationExtension},
		{80, RelationExtension},
		{79.99, RelationSharedTopic},
		{70, RelationSharedTopic},
		{69.99, RelationTangential},
		{60, RelationTangential},
		{0, RelationTangential},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ClassifyStrength(tt.strength), "strength %.2f", tt.strength)
	}
}
