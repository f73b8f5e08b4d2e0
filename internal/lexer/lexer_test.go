package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wotpp/wotpp/internal/token"
)

func lexAllNormal(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New([]byte(src), "test.wpp")
	var toks []token.Token
	for {
		tok, err := l.Advance(token.ModeNormal)
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestPunctuationAndKeywords(t *testing.T) {
	toks := lexAllNormal(t, `let f(a, b) map { } .. -> = * !x`)
	require.Equal(t, []token.Kind{
		token.Keyword, token.Ident, token.LParen, token.Ident, token.Comma,
		token.Ident, token.RParen, token.Keyword, token.LBrace, token.RBrace,
		token.DotDot, token.Arrow, token.Equals, token.Star, token.Bang,
		token.Ident, token.EOF,
	}, kinds(toks))
}

func TestIdentifiersMayContainSlash(t *testing.T) {
	toks := lexAllNormal(t, `a/f _x9`)
	require.Equal(t, "a/f", toks[0].Text)
	require.Equal(t, "_x9", toks[1].Text)
}

func TestCommentsSkipAndNest(t *testing.T) {
	toks := lexAllNormal(t, "x #[ outer #[ inner ] still outer ] y")
	require.Equal(t, []token.Kind{token.Ident, token.Ident, token.EOF}, kinds(toks))
	require.Equal(t, "y", toks[1].Text)
}

func TestUnterminatedCommentIsError(t *testing.T) {
	l := New([]byte("#[ never closed"), "test.wpp")
	_, err := l.Advance(token.ModeNormal)
	require.Error(t, err)
}

func TestPeekIsIdempotent(t *testing.T) {
	l := New([]byte("let x"), "test.wpp")
	first, err := l.Peek(token.ModeNormal)
	require.NoError(t, err)
	second, err := l.Peek(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, first, second)

	adv, err := l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, first, adv)
}

func TestPositionTracking(t *testing.T) {
	l := New([]byte("a\nbb"), "test.wpp")
	first, err := l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, 1, first.Pos.Line)
	require.Equal(t, 1, first.Pos.Col)

	second, err := l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, 2, second.Pos.Line)
	require.Equal(t, 1, second.Pos.Col)
	require.Equal(t, "bb", second.Text)
}

func TestSmartOpener(t *testing.T) {
	l := New([]byte(`c#"body"#`), "test.wpp")
	tok, err := l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, token.Smart, tok.Kind)
	require.Equal(t, byte('c'), tok.SmartLetter)
	require.Equal(t, "#", tok.SmartDelim)
}

func TestSmartOpenerMultiByteDelimiter(t *testing.T) {
	l := New([]byte(`r##'body'##`), "test.wpp")
	tok, err := l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, token.Smart, tok.Kind)
	require.Equal(t, "##", tok.SmartDelim)
}

func TestSmartLettersLexAsIdentsWithoutQuote(t *testing.T) {
	toks := lexAllNormal(t, "r p c x b rest")
	for _, tok := range toks[:6] {
		require.Equal(t, token.Ident, tok.Kind)
	}
}

func TestHexBinOpeners(t *testing.T) {
	l := New([]byte(`x"48"`), "test.wpp")
	tok, err := l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, token.Hex, tok.Kind)

	l = New([]byte(`b'0100'`), "test.wpp")
	tok, err = l.Advance(token.ModeNormal)
	require.NoError(t, err)
	require.Equal(t, token.Bin, tok.Kind)
}

func TestStringModeChunksAndEscapes(t *testing.T) {
	l := New([]byte(`ab\n\x41cd"`), "test.wpp")
	l.SetStringMode('"', "", false)

	tok, err := l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrChunk, tok.Kind)
	require.Equal(t, "ab", tok.Text)

	tok, err = l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrEscape, tok.Kind)
	require.Equal(t, "\n", tok.Text)

	tok, err = l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrHexEsc, tok.Kind)
	require.Equal(t, "A", tok.Text)

	tok, err = l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrChunk, tok.Kind)
	require.Equal(t, "cd", tok.Text)

	tok, err = l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrEnd, tok.Kind)
}

func TestStringModeSmartTerminator(t *testing.T) {
	// The quote alone does not terminate; only quote + delimiter does.
	l := New([]byte(`a"b"#`), "test.wpp")
	l.SetStringMode('"', "#", true)

	tok, err := l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrChunk, tok.Kind)
	require.Equal(t, `a"b`, tok.Text)

	tok, err = l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrEnd, tok.Kind)
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New([]byte(`abc`), "test.wpp")
	l.SetStringMode('"', "", false)
	_, err := l.Advance(token.ModeString)
	require.Error(t, err)
}

func TestBadHexEscapeIsError(t *testing.T) {
	l := New([]byte(`\xg1"`), "test.wpp")
	l.SetStringMode('"', "", false)
	_, err := l.Advance(token.ModeString)
	require.Error(t, err)
}

func TestBadBinEscapeIsError(t *testing.T) {
	l := New([]byte(`\b0120000"`), "test.wpp")
	l.SetStringMode('"', "", false)
	_, err := l.Advance(token.ModeString)
	require.Error(t, err)
}

func TestBinEscapeDecodes(t *testing.T) {
	l := New([]byte(`\b01000001"`), "test.wpp")
	l.SetStringMode('"', "", false)
	tok, err := l.Advance(token.ModeString)
	require.NoError(t, err)
	require.Equal(t, token.StrBinEsc, tok.Kind)
	require.Equal(t, "A", tok.Text)
}

func TestCharMode(t *testing.T) {
	l := New([]byte("ab"), "test.wpp")
	tok, err := l.Advance(token.ModeChar)
	require.NoError(t, err)
	require.Equal(t, token.Char, tok.Kind)
	require.Equal(t, "a", tok.Text)

	tok, err = l.Advance(token.ModeChar)
	require.NoError(t, err)
	require.Equal(t, "b", tok.Text)

	tok, err = l.Advance(token.ModeChar)
	require.NoError(t, err)
	require.Equal(t, token.EOF, tok.Kind)
}

func TestNumberToken(t *testing.T) {
	toks := lexAllNormal(t, "drop x(0)")
	require.Equal(t, []token.Kind{
		token.Keyword, token.Ident, token.LParen, token.Number,
		token.RParen, token.EOF,
	}, kinds(toks))
	require.Equal(t, "0", toks[3].Text)
}

func TestUnexpectedCharacterIsError(t *testing.T) {
	l := New([]byte("@"), "test.wpp")
	_, err := l.Advance(token.ModeNormal)
	require.Error(t, err)
}
