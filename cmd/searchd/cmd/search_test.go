package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/search"
)

func TestPrintSearchResults_Empty(t *testing.T) {
	buf := &bytes.Buffer{}

	err := printSearchResults(buf, &search.Response{IsSearchExhaustive: true})

	require.NoError(t, err)
	assert.Equal(t, "No results.\n", buf.String())
}

func TestPrintSearchResults_Files(t *testing.T) {
	resp := &search.Response{
		Stats: search.Stats{ActualMatchCount: 2, TotalMatchCount: 2},
		Files: []search.File{
			{
				FileName:   search.FileName{Text: "cmd/main.go"},
				Repository: "github.com/example/api",
				Chunks: []search.Chunk{
					{
						Content:      "func main() {\n\trun()\n}\n",
						ContentStart: search.Location{LineNumber: 10},
					},
				},
			},
		},
		IsSearchExhaustive: true,
	}
	buf := &bytes.Buffer{}

	err := printSearchResults(buf, resp)

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "github.com/example/api cmd/main.go")
	assert.Contains(t, output, "10: func main() {")
	assert.Contains(t, output, "11: \trun()")
	assert.Contains(t, output, "2 matches in 1 files")
	assert.NotContains(t, output, "truncated")
}

func TestPrintSearchResults_Truncated(t *testing.T) {
	resp := &search.Response{
		Stats: search.Stats{ActualMatchCount: 5, TotalMatchCount: 100},
		Files: []search.File{
			{
				FileName:   search.FileName{Text: "a.go"},
				Repository: "github.com/example/api",
			},
		},
	}
	buf := &bytes.Buffer{}

	err := printSearchResults(buf, resp)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(truncated)")
}
