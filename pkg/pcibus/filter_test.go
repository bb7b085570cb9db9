package pcibus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "::", false},
		{"::0300", "::0300", false},
		{"10de:", "10de::", false},
		{"10de:2684", "10de:2684:", false},
		{"0x1002::0380", "1002::0380", false},
		{"*:*:0302", "::0302", false},
		{"10de", "", true},
		{"1:2:3:4", "", true},
		{"zzzz::", "", true},
		{"10000::", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFilter(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.String())
		})
	}
}

func TestFilterMatch(t *testing.T) {
	vga, err := ParseFilter("::0300")
	require.NoError(t, err)

	// Programming interface byte is ignored
	assert.True(t, vga.Match(0x10de, 0x2684, 0x030000))
	assert.True(t, vga.Match(0x1002, 0x744c, 0x030001))
	assert.False(t, vga.Match(0x10de, 0x2330, 0x030200))
	assert.False(t, vga.Match(0x8086, 0x1572, 0x020000))

	nv, err := ParseFilter("10de:2684")
	require.NoError(t, err)
	assert.True(t, nv.Match(0x10de, 0x2684, 0x030000))
	assert.False(t, nv.Match(0x10de, 0x2685, 0x030000))
	assert.False(t, nv.Match(0x1002, 0x2684, 0x030000))

	var all Filter
	assert.True(t, all.Match(0x8086, 0x1572, 0x020000))
}
