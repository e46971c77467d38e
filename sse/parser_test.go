package sse_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/converse/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, chunks ...string) ([]string, *sse.Parser) {
	t.Helper()
	var got []string
	p := sse.NewParser(func(data string) { got = append(got, data) })
	for _, c := range chunks {
		p.Feed([]byte(c))
	}
	p.Close()
	return got, p
}

func TestParser_Frames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single frame", "data: Hi\n\n", []string{"Hi"}},
		{"two frames", "data: Hi\n\ndata:  there\n\n", []string{"Hi", " there"}},
		{"multi-line payload", "data: a\ndata: b\n\n", []string{"a\nb"}},
		{"empty data lines kept", "data: \ndata: x\ndata: \n\n", []string{"\nx\n"}},
		{"other fields ignored", "event: delta\nid: 7\n: comment\ndata: hi\n\n", []string{"hi"}},
		{"frame without data", "event: ping\n\ndata: hi\n\n", []string{"hi"}},
		{"data without space ignored", "data:hi\n\n", nil},
		{"crlf lines inside frame", "data: a\r\ndata: b\r\n\n", []string{"a\nb"}},
		{"payload with colon", "data: {\"t\":\"x\"}\n\n", []string{`{"t":"x"}`}},
		{"unterminated tail flushed on close", "data: a\n\ndata: tail", []string{"a", "tail"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _ := collect(t, tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_SplitIndependence(t *testing.T) {
	t.Parallel()

	input := "data: Hi\n\nevent: x\ndata: zażółć 👍\ndata: line2\n\n: keepalive\n\ndata:  there\r\n\ndata: [DONE]\n\ndata: ignored\n\n"
	want, whole := collect(t, input)
	require.Equal(t, []string{"Hi", "zażółć 👍\nline2", " there"}, want)
	require.True(t, whole.Done())

	for i := 0; i <= len(input); i++ {
		got, p := collect(t, input[:i], input[i:])
		assert.Equal(t, want, got, "split at %d", i)
		assert.True(t, p.Done(), "split at %d", i)
	}
	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j += 7 {
			got, _ := collect(t, input[:i], input[i:j], input[j:])
			assert.Equal(t, want, got, "split at %d,%d", i, j)
		}
	}

	chunks := make([]string, 0, len(input))
	for i := range len(input) {
		chunks = append(chunks, input[i:i+1])
	}
	got, _ := collect(t, chunks...)
	assert.Equal(t, want, got, "byte by byte")
}

func TestParser_Sentinel(t *testing.T) {
	t.Parallel()

	t.Run("ends stream and discards the rest", func(t *testing.T) {
		t.Parallel()
		var got []string
		p := sse.NewParser(func(d string) { got = append(got, d) })
		assert.False(t, p.Feed([]byte("data: a\n\ndata: [DONE]\n\ndata: b\n\n")))
		assert.True(t, p.Done())
		assert.False(t, p.Feed([]byte("data: c\n\n")))
		assert.True(t, p.Close())
		assert.Equal(t, []string{"a"}, got)
	})

	t.Run("trimmed payload matches", func(t *testing.T) {
		t.Parallel()
		got, p := collect(t, "data:  [DONE] \n\n")
		assert.Empty(t, got)
		assert.True(t, p.Done())
	})

	t.Run("sentinel in unterminated tail", func(t *testing.T) {
		t.Parallel()
		got, p := collect(t, "data: a\n\ndata: [DONE]")
		assert.Equal(t, []string{"a"}, got)
		assert.True(t, p.Done())
	})

	t.Run("sentinel as first of several data lines", func(t *testing.T) {
		t.Parallel()
		got, p := collect(t, "data: [DONE]\ndata: more\n\n")
		assert.Empty(t, got)
		assert.True(t, p.Done())
	})

	t.Run("sentinel as later data line drops its frame", func(t *testing.T) {
		t.Parallel()
		got, p := collect(t, "data: foo\ndata: [DONE]\n\ndata: after\n\n")
		assert.Empty(t, got)
		assert.True(t, p.Done())
	})

	t.Run("sentinel text inside a payload is data", func(t *testing.T) {
		t.Parallel()
		got, p := collect(t, "data: say [DONE] now\n\n")
		assert.Equal(t, []string{"say [DONE] now"}, got)
		assert.False(t, p.Done())
	})

	t.Run("no sentinel", func(t *testing.T) {
		t.Parallel()
		_, p := collect(t, "data: a\n\n")
		assert.False(t, p.Done())
	})
}

func TestParser_SplitMultiByteCharacter(t *testing.T) {
	t.Parallel()

	input := "data: 👍\n\n"
	idx := strings.Index(input, "👍") + 2
	got, _ := collect(t, input[:idx], input[idx:])
	assert.Equal(t, []string{"👍"}, got)
}

func TestParser_EmitsFramesEagerly(t *testing.T) {
	t.Parallel()

	var got []string
	p := sse.NewParser(func(d string) { got = append(got, d) })
	p.Feed([]byte("data: a\n\ndata: b"))
	assert.Equal(t, []string{"a"}, got, "frame emitted before chunk ends")
	p.Feed([]byte("\n\n"))
	assert.Equal(t, []string{"a", "b"}, got)
}
