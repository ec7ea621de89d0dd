package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTextStripsScriptTags(t *testing.T) {
	assert.Equal(t, "hello alert(1) world", SanitizeText("hello <script>alert(1)</script> world"))
	assert.Equal(t, "x", SanitizeText(`<SCRIPT src="evil.js">x</ScRiPt >`))
}

func TestSanitizeTextStripsEventHandlers(t *testing.T) {
	assert.Equal(t, "<img src=x>", SanitizeText(`<img src=x onerror="alert(1)">`))
	assert.Equal(t, "<div>hi</div>", SanitizeText(`<div onclick='steal()'>hi</div>`))
}

func TestSanitizeTextStripsJSProtocol(t *testing.T) {
	assert.Equal(t, `<a href="alert(1)">x</a>`, SanitizeText(`<a href="javascript:alert(1)">x</a>`))
	assert.Equal(t, "alert(1)", SanitizeText("JavaScript : alert(1)"))
}

func TestSanitizeTextControlCharacters(t *testing.T) {
	assert.Equal(t, "ab", SanitizeText("a\x00\x07b"))
	assert.Equal(t, "line1\nline2\ttab", SanitizeText("line1\nline2\ttab"))
	assert.Equal(t, "ab", SanitizeText("a\rb"))
}

func TestSanitizeTextTrimsWhitespace(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("   hello   "))
	assert.Equal(t, "", SanitizeText("   \n\t  "))
}

func TestSanitizeTextKeepsPlainText(t *testing.T) {
	assert.Equal(t, "when can I tour the campus?", SanitizeText("when can I tour the campus?"))
	assert.Equal(t, "цена 100€ 👍", SanitizeText("цена 100€ 👍"))
}
