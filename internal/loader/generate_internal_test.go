package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkDates(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 7)
	for i := range dates {
		dates[i] = base.AddDate(0, 0, i)
	}

	chunks := chunkDates(dates, 3)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 1)
	assert.True(t, chunks[2][0].Equal(dates[6]))

	assert.Nil(t, chunkDates(nil, 3))
	assert.Len(t, chunkDates(dates[:2], 8), 1)
}

func TestChannelNames(t *testing.T) {
	asm := &assembler{
		lag:   2,
		leads: 3,
		series: []varSeries{
			{source: "era5", name: "uas"},
			{source: "osisaf", name: "siconca"},
		},
	}

	// (lag+1) planes per variable plus the meta channels.
	assert.Equal(t, 2*3+3, asm.numChannels())
	assert.Equal(t, []string{
		"uas_lag_2", "uas_lag_1", "uas_lag_0",
		"siconca_lag_2", "siconca_lag_1", "siconca_lag_0",
		"cos", "sin", "land",
	}, asm.channelNames())
}
