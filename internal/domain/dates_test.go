package domain_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "padded", input: "2020-01-31", want: day(2020, time.January, 31)},
		{name: "unpadded", input: "2020-1-3", want: day(2020, time.January, 3)},
		{name: "leap day", input: "2020-02-29", want: day(2020, time.February, 29)},
		{name: "no such day", input: "2021-02-29", wantErr: true},
		{name: "month overflow", input: "2020-13-01", wantErr: true},
		{name: "wrong shape", input: "20200131", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestDateRange(t *testing.T) {
	got := domain.DateRange(day(2020, time.January, 30), day(2020, time.February, 2))
	want := []time.Time{
		day(2020, time.January, 30),
		day(2020, time.January, 31),
		day(2020, time.February, 1),
		day(2020, time.February, 2),
	}
	assert.Empty(t, cmp.Diff(want, got))

	assert.Empty(t, domain.DateRange(day(2020, time.March, 2), day(2020, time.March, 1)))
	assert.Len(t, domain.DateRange(day(2020, time.March, 1), day(2020, time.March, 1)), 1)
}

func TestWorkingDatesMergesOverlappingWindows(t *testing.T) {
	// Two adjacent targets with lag 2 / lead 2: their windows overlap and
	// each shared day must appear exactly once.
	targets := []time.Time{day(2020, time.June, 10), day(2020, time.June, 11)}
	got := domain.WorkingDates(targets, 2, 2)

	want := domain.DateRange(day(2020, time.June, 8), day(2020, time.June, 13))
	assert.Empty(t, cmp.Diff(want, got))
}

func TestWorkingDatesSorted(t *testing.T) {
	targets := []time.Time{day(2021, time.March, 1), day(2020, time.June, 10)}
	got := domain.WorkingDates(targets, 1, 1)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Before(got[i]), "dates out of order at %d", i)
	}
}

func TestLagDatesOldestFirst(t *testing.T) {
	got := domain.LagDates(day(2020, time.June, 10), 2)
	want := []time.Time{
		day(2020, time.June, 8),
		day(2020, time.June, 9),
		day(2020, time.June, 10),
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLeadDatesExcludeTarget(t *testing.T) {
	got := domain.LeadDates(day(2020, time.June, 10), 3)
	want := []time.Time{
		day(2020, time.June, 11),
		day(2020, time.June, 12),
		day(2020, time.June, 13),
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestFileDate(t *testing.T) {
	d, ok := domain.FileDate("siconca_20200131.nc")
	require.True(t, ok)
	assert.True(t, d.Equal(day(2020, time.January, 31)))

	_, ok = domain.FileDate("siconca_latest.nc")
	assert.False(t, ok)
	_, ok = domain.FileDate("siconca_20200131.txt")
	assert.False(t, ok)
	_, ok = domain.FileDate("siconca_20201340.nc")
	assert.False(t, ok)
}
