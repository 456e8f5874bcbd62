package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID_Increasing(t *testing.T) {
	prev := NextID()
	for i := 0; i < 5000; i++ {
		id := NextID()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestGenerateEventNo(t *testing.T) {
	assert.Regexp(t, `^EVT\d{14}_\d{8}$`, GenerateEventNo())
}
