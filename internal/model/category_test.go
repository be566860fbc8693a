package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceForDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     Confidence
	}{
		{"perfect match", 0.0, ConfidenceHigh},
		{"just under the high bound", 0.39, ConfidenceHigh},
		{"exactly the high bound", 0.4, ConfidenceMedium},
		{"exactly the medium bound", 0.6, ConfidenceMedium},
		{"just over the medium bound", 0.61, ConfidenceLow},
		{"far match", 0.95, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfidenceForDistance(tt.distance))
		})
	}
}

func TestLevelForID(t *testing.T) {
	assert.Equal(t, LevelGroup, LevelForID("CG800"))
	assert.Equal(t, LevelSubcategory, LevelForID("C803"))
	assert.Equal(t, LevelSubcategory, LevelForID("C8"))
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, Direction("D").Valid())
	assert.True(t, Direction("C").Valid())
	assert.True(t, Direction("BOTH").Valid())
	assert.True(t, Direction("").Valid())
	assert.False(t, Direction("X").Valid())
}

func TestAbsAmount(t *testing.T) {
	assert.Equal(t, 45.5, TransactionRecord{Amount: -45.5}.AbsAmount())
	assert.Equal(t, 45.5, TransactionRecord{Amount: 45.5}.AbsAmount())
}
