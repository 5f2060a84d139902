package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateIdDedupSequence(t *testing.T) {
	d := NewUpdateIdDedup()
	var accepted []uint64
	for _, id := range []uint64{100, 101, 101, 102, 100} {
		if d.Accept("BTCUSDT", id) {
			accepted = append(accepted, id)
		}
	}
	require.Equal(t, []uint64{100, 101, 102}, accepted)
}

func TestUpdateIdDedupInterleavedStreams(t *testing.T) {
	d := NewUpdateIdDedup()
	stream1 := []uint64{100, 101, 102}
	stream2 := []uint64{101, 102, 103}
	var got []uint64
	for i := 0; i < 3; i++ {
		if d.Accept("BTCUSDT", stream1[i]) {
			got = append(got, stream1[i])
		}
		if d.Accept("BTCUSDT", stream2[i]) {
			got = append(got, stream2[i])
		}
	}
	require.Equal(t, []uint64{100, 101, 102, 103}, got)
}

func TestIdHashDedupRejectsDuplicate(t *testing.T) {
	d := NewIdHashDedup()
	ids := [][]byte{[]byte("a-uuid"), []byte("b-uuid"), []byte("a-uuid")}
	var accepted int
	for _, id := range ids {
		if d.Accept("BTCUSDT", id) {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted)
}

func TestIdHashDedupSeparatesSymbols(t *testing.T) {
	d := NewIdHashDedup()
	require.True(t, d.Accept("BTCUSDT", []byte("id-1")), "expected first accept")
	require.True(t, d.Accept("ETHUSDT", []byte("id-1")), "expected independent symbol state to accept same id")
}
