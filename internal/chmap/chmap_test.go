package chmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_FrequencyLookup(t *testing.T) {
	m := New(map[int]int64{7: 154875000})
	assert.Equal(t, int64(154875000), m.Frequency(7))
	assert.Equal(t, int64(0), m.Frequency(8))
}

func TestMap_NilReturnsZero(t *testing.T) {
	var m *Map
	assert.Equal(t, int64(0), m.Frequency(7))
}

func TestMap_CopiesInputTable(t *testing.T) {
	table := map[int]int64{1: 100}
	m := New(table)
	table[1] = 999
	assert.Equal(t, int64(100), m.Frequency(1))
}
