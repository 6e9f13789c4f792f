package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("gold_price *24k* [x]", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, `gold\_price \*24k\* \[x]`, v1)

	v2, err := EscapeMarkdown("1,950.50 (USD)!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, `1,950\.50 \(USD\)\!`, v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)

	assert.Equal(t, `a\_b`, Markdown("a_b"))
}
