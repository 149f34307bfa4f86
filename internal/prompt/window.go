package prompt

import (
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// getCodec returns the cl100k_base tokenizer, a reasonable approximation for
// the supported models.
func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// Window returns up to budget/2 tokens of text before offset and up to
// budget/2 tokens after it.
func Window(text string, offset, budget int) (before, after string) {
	offset = max(0, min(offset, len(text)))
	return Before(text[:offset], budget/2), After(text[offset:], budget/2)
}

// Before returns the longest suffix of text that fits in n tokens, cut on a
// rune boundary.
func Before(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	tokens, ok := encode(text)
	if !ok {
		return lastRunes(text, n)
	}
	if len(tokens) <= n {
		return text
	}
	size := 0
	for _, tok := range tokens[len(tokens)-n:] {
		size += len(tok)
	}
	cut := max(0, len(text)-size)
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}

// After returns the longest prefix of text that fits in n tokens, cut on a
// rune boundary.
func After(text string, n int) string {
	if n <= 0 || text == "" {
		return ""
	}
	tokens, ok := encode(text)
	if !ok {
		return firstRunes(text, n)
	}
	if len(tokens) <= n {
		return text
	}
	size := 0
	for _, tok := range tokens[:n] {
		size += len(tok)
	}
	cut := min(size, len(text))
	for cut > 0 && cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// encode splits text into token strings. It reports false when the
// tokenizer is unavailable.
func encode(text string) ([]string, bool) {
	c, err := getCodec()
	if err != nil {
		return nil, false
	}
	_, tokens, err := c.Encode(text)
	if err != nil {
		return nil, false
	}
	return tokens, true
}

// CountTokens returns the number of cl100k tokens in text, or its rune count
// when the tokenizer is unavailable.
func CountTokens(text string) int {
	if tokens, ok := encode(text); ok {
		return len(tokens)
	}
	return utf8.RuneCountInString(text)
}

func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := len(s)
	for ; n > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

func firstRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
