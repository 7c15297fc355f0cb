package scope

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// tokenScopes maps chroma token types to TextMate-style scope names.  Types
// missing here are looked up by their sub-category, then their category.
var tokenScopes = map[chroma.TokenType]string{
	chroma.Error: "invalid.illegal",

	chroma.Keyword:            "keyword",
	chroma.KeywordConstant:    "constant.language",
	chroma.KeywordDeclaration: "storage.type",
	chroma.KeywordNamespace:   "keyword.control.import",
	chroma.KeywordPseudo:      "keyword.other",
	chroma.KeywordReserved:    "keyword.control",
	chroma.KeywordType:        "storage.type",

	chroma.Name:          "variable.other",
	chroma.NameAttribute: "entity.other.attribute-name",
	chroma.NameBuiltin:   "support.function.builtin",
	chroma.NameClass:     "entity.name.class",
	chroma.NameConstant:  "constant.other",
	chroma.NameDecorator: "meta.annotation",
	chroma.NameException: "entity.name.exception",
	chroma.NameFunction:  "entity.name.function",
	chroma.NameLabel:     "entity.name.label",
	chroma.NameNamespace: "entity.name.namespace",
	chroma.NameTag:       "entity.name.tag",
	chroma.NameVariable:  "variable",

	chroma.Literal:               "constant",
	chroma.LiteralDate:           "constant.other.date",
	chroma.LiteralString:         "string.quoted",
	chroma.LiteralStringBacktick: "string.quoted.other",
	chroma.LiteralStringChar:     "string.quoted.single",
	chroma.LiteralStringDoc:      "comment.block.documentation",
	chroma.LiteralStringDouble:   "string.quoted.double",
	chroma.LiteralStringEscape:   "constant.character.escape",
	chroma.LiteralStringHeredoc:  "string.unquoted.heredoc",
	chroma.LiteralStringInterpol: "string.interpolated",
	chroma.LiteralStringRegex:    "string.regexp",
	chroma.LiteralStringSingle:   "string.quoted.single",
	chroma.LiteralStringSymbol:   "constant.other.symbol",
	chroma.LiteralNumber:         "constant.numeric",
	chroma.LiteralNumberBin:      "constant.numeric.binary",
	chroma.LiteralNumberFloat:    "constant.numeric.float",
	chroma.LiteralNumberHex:      "constant.numeric.hex",
	chroma.LiteralNumberInteger:  "constant.numeric.integer",
	chroma.LiteralNumberOct:      "constant.numeric.octal",

	chroma.Operator:     "keyword.operator",
	chroma.OperatorWord: "keyword.operator.word",
	chroma.Punctuation:  "punctuation",

	chroma.Comment:          "comment",
	chroma.CommentHashbang:  "comment.line.shebang",
	chroma.CommentMultiline: "comment.block",
	chroma.CommentPreproc:   "meta.preprocessor",
	chroma.CommentSingle:    "comment.line",
	chroma.CommentSpecial:   "comment.block.documentation",

	chroma.Generic:           "markup",
	chroma.GenericDeleted:    "markup.deleted",
	chroma.GenericEmph:       "markup.italic",
	chroma.GenericError:      "markup.error",
	chroma.GenericHeading:    "markup.heading",
	chroma.GenericInserted:   "markup.inserted",
	chroma.GenericStrong:     "markup.bold",
	chroma.GenericSubheading: "markup.heading.subheading",
}

// TokenScope returns the scope name for a chroma token type, or "" for plain
// text.
func TokenScope(tt chroma.TokenType) string {
	for _, t := range []chroma.TokenType{tt, tt.SubCategory(), tt.Category()} {
		if s, ok := tokenScopes[t]; ok {
			return s
		}
	}
	return ""
}

// TokenTypes returns the chroma token types that have a scope of their own,
// in ascending order.
func TokenTypes() []chroma.TokenType {
	types := make([]chroma.TokenType, 0, len(tokenScopes))
	for tt := range tokenScopes {
		types = append(types, tt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Lexer picks a chroma lexer by language name, then file name, then by
// analysing the source, falling back to plain text.
func Lexer(language, filename, source string) chroma.Lexer {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil && filename != "" {
		lexer = lexers.Match(filename)
	}
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// LanguageID returns the short name used in scopes for a lexer, e.g. "go"
// for the Go lexer: "source.go", "comment.line.go".
func LanguageID(lexer chroma.Lexer) string {
	cfg := lexer.Config()
	name := cfg.Name
	if len(cfg.Aliases) > 0 {
		name = cfg.Aliases[0]
	}
	name = strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if name == "" {
		return "plain"
	}
	return name
}

// Tokenize lexes source and returns a Table whose base scope is
// "source.<lang>" and whose spans are the language-suffixed token scopes.
// The lexer's layer is named "lexer"; overlays are composed over it in the
// given order.
func Tokenize(lexer chroma.Lexer, source string, order []string, overlays ...Layer) (*Table, error) {
	lang := LanguageID(lexer)
	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil, fmt.Errorf("tokenise %s: %w", lang, err)
	}
	layer := Layer{Name: "lexer"}
	pos := 0
	for _, tok := range it.Tokens() {
		n := utf8.RuneCountInString(tok.Value)
		if s := TokenScope(tok.Type); s != "" && n > 0 {
			layer.Spans = append(layer.Spans, Span{Start: pos, End: pos + n, Scope: s + "." + lang})
		}
		pos += n
	}
	layers := []Layer{layer}
	for i, l := range overlays {
		l.ID = i + 1
		layers = append(layers, l)
	}
	return NewTable("source."+lang, order, layers...), nil
}
