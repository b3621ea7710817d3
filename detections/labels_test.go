package detections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassNames(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr string
	}{
		{
			name: "exporter format",
			raw:  "{0: 'person', 1: 'bicycle', 2: 'traffic light'}",
			want: []string{"person", "bicycle", "traffic light"},
		},
		{
			name: "double quotes and escapes",
			raw:  `{1: "it's", 0: 'a\'b'}`,
			want: []string{"a'b", "it's"},
		},
		{
			name: "trailing comma and whitespace",
			raw:  " {0: 'cat',\n 1: 'dog', } ",
			want: []string{"cat", "dog"},
		},
		{name: "empty", raw: "{}", want: []string{}},
		{name: "not a dict", raw: "['cat']", wantErr: "dictionary literal"},
		{name: "gap in ids", raw: "{0: 'cat', 2: 'dog'}", wantErr: "not contiguous"},
		{name: "duplicate id", raw: "{0: 'cat', 0: 'dog'}", wantErr: "duplicate id"},
		{name: "bad id", raw: "{x: 'cat'}", wantErr: "bad id"},
		{name: "unquoted", raw: "{0: cat}", wantErr: "expected quoted name"},
		{name: "unterminated", raw: "{0: 'cat}", wantErr: "unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassNames(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCOCOLabels(t *testing.T) {
	require.Len(t, COCOLabels, 80)
	assert.Equal(t, "person", COCOLabels[0])
	assert.Equal(t, "toothbrush", COCOLabels[79])
}
