package pagination

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		page       string
		limit      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", "", 1, DefaultLimit, 0},
		{"explicit", "3", "20", 3, 20, 40},
		{"garbage", "abc", "xyz", 1, DefaultLimit, 0},
		{"non-positive", "0", "-5", 1, DefaultLimit, 0},
		{"limit capped", "2", "1000", 2, MaxLimit, MaxLimit},
		{"huge page", "9223372036854775807", "100", MaxPage, 100, (MaxPage - 1) * 100},
		{"page beyond int64", "99999999999999999999", "10", MaxPage, 10, (MaxPage - 1) * 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
			assert.GreaterOrEqual(t, p.Offset, 0)
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Parse("2", "10"), 25)
	assert.Equal(t, int64(25), meta.Total)
	assert.Equal(t, int64(3), meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)

	meta = NewMeta(Parse("1", "10"), 0)
	assert.Equal(t, int64(0), meta.TotalPages)
	assert.False(t, meta.HasNext)
	assert.False(t, meta.HasPrev)

	// totals beyond 32 bits are not narrowed
	big := int64(1) << 40
	meta = NewMeta(Parse("1", "100"), big)
	assert.Equal(t, big/100+1, meta.TotalPages)
	assert.True(t, meta.HasNext)
}

func TestNewPageEncodesEmptyList(t *testing.T) {
	raw, err := json.Marshal(NewPage[int](nil, Parse("", ""), 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"meta":{"page":1,"limit":`+strconv.Itoa(DefaultLimit)+`,"total":0,"total_pages":0,"has_next":false,"has_prev":false}}`, string(raw))
}
