package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"pdf magic", []byte("%PDF-1.7\n..."), FormatPDF},
		{"rtf magic", []byte(`{\rtf1\ansi}`), FormatRTF},
		{"html doctype", []byte("<!DOCTYPE html><html><body>hi</body></html>"), FormatHTML},
		{"empty", []byte(""), FormatUnknown},
		{"whitespace only", []byte("   \n\t"), FormatUnknown},
		{"plain text", []byte("just some text"), FormatText},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DetectFormat(c.data))
		})
	}
}

func TestConvertToMarkdown_PassthroughFormats(t *testing.T) {
	t.Parallel()
	out, err := ConvertToMarkdown(FormatText, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = ConvertToMarkdown(FormatMarkdown, []byte("# hi"))
	require.NoError(t, err)
	assert.Equal(t, "# hi", out)
}

func TestConvertToMarkdown_HTML(t *testing.T) {
	t.Parallel()
	out, err := ConvertToMarkdown(FormatHTML, []byte("<h1>Title</h1><p>Body text.</p>"))
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Body text.")
}

func TestConvertToMarkdown_UnregisteredFormatErrors(t *testing.T) {
	t.Parallel()
	_, err := ConvertToMarkdown(FormatDOCX, []byte("whatever"))
	assert.Error(t, err)
}

func TestRegisterConverter_IsUsedByConvertToMarkdown(t *testing.T) {
	RegisterConverter(FormatRTF, func(data []byte) (string, error) {
		return "converted: " + string(data), nil
	})
	out, err := ConvertToMarkdown(FormatRTF, []byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "converted: raw", out)
}
