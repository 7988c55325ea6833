package qsnippet

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════
// Config is built once through NewConfig and reused for many Query
// compilations. Everything that can be precompiled (boundary regex
// fragments, the word scanner, the word-character test) is precompiled
// here so that NewQuery itself stays cheap and allocation-light.
// ═══════════════════════════════════════════════════════════════════════════════

// StemFunc reduces a word to a stem. It must be deterministic, must not
// panic, and must return a non-empty string for non-empty input.
type StemFunc func(word string) string

// Config holds the immutable, process-shareable options a Query is compiled
// against.
type Config struct {
	Locale  string
	Charset string

	Stopwords map[string]struct{}

	Wildcard rune

	// WordChars is a regex character-class body (no surrounding brackets),
	// e.g. `\p{L}\p{N}_`. It defines what belongs inside a term.
	WordChars string

	IgnoreFirstChars string
	IgnoreLastChars  string

	AndWord string
	OrWord  string
	NotWord string

	PhraseDelim rune

	IgnoreCase bool

	IgnoreFields map[string]struct{}

	TreatURIsLikePhrases bool

	Stemmer StemFunc

	// TagPattern matches one HTML tag; WhitespacePattern matches one
	// whitespace unit including HTML-entity forms like &nbsp;.
	TagPattern        string
	WhitespacePattern string

	bounds *boundaryTables
}

// Option mutates a Config under construction. Returning an error aborts
// NewConfig with an InvalidConfig.
type Option func(*Config) error

func WithLocale(locale string) Option {
	return func(c *Config) error { c.Locale = locale; return nil }
}

func WithCharset(charset string) Option {
	return func(c *Config) error { c.Charset = charset; return nil }
}

func WithStopwords(words []string) Option {
	return func(c *Config) error {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[strings.ToLower(w)] = struct{}{}
		}
		c.Stopwords = set
		return nil
	}
}

func WithWildcard(r rune) Option {
	return func(c *Config) error {
		if r == 0 {
			return invalidConfigErr("wildcard", "must be a single non-zero rune", nil)
		}
		c.Wildcard = r
		return nil
	}
}

func WithWordChars(classBody string) Option {
	return func(c *Config) error {
		if classBody == "" {
			return invalidConfigErr("word_characters", "must not be empty", nil)
		}
		c.WordChars = classBody
		return nil
	}
}

func WithIgnoreFirstChars(chars string) Option {
	return func(c *Config) error { c.IgnoreFirstChars = chars; return nil }
}

func WithIgnoreLastChars(chars string) Option {
	return func(c *Config) error { c.IgnoreLastChars = chars; return nil }
}

func WithOperatorWords(and, or, not string) Option {
	return func(c *Config) error {
		if and == "" || or == "" || not == "" {
			return invalidConfigErr("operator_words", "and/or/not words must be non-empty", nil)
		}
		c.AndWord, c.OrWord, c.NotWord = and, or, not
		return nil
	}
}

func WithPhraseDelim(r rune) Option {
	return func(c *Config) error {
		if r == 0 {
			return invalidConfigErr("phrase_delim", "must be a single non-zero rune", nil)
		}
		c.PhraseDelim = r
		return nil
	}
}

func WithIgnoreCase(v bool) Option {
	return func(c *Config) error { c.IgnoreCase = v; return nil }
}

func WithIgnoreFields(fields []string) Option {
	return func(c *Config) error {
		set := make(map[string]struct{}, len(fields))
		for _, f := range fields {
			set[strings.ToLower(f)] = struct{}{}
		}
		c.IgnoreFields = set
		return nil
	}
}

func WithTreatURIsLikePhrases(v bool) Option {
	return func(c *Config) error { c.TreatURIsLikePhrases = v; return nil }
}

// WithStemmer installs a stemming function. Pass nil to disable stemming
// entirely (the zero-value Config already disables it).
func WithStemmer(fn StemFunc) Option {
	return func(c *Config) error { c.Stemmer = fn; return nil }
}

func WithTagPattern(pattern string) Option {
	return func(c *Config) error {
		if _, err := regexp.Compile(pattern); err != nil {
			return invalidConfigErr("tag_re", "does not compile", err)
		}
		c.TagPattern = pattern
		return nil
	}
}

func WithWhitespacePattern(pattern string) Option {
	return func(c *Config) error {
		if _, err := regexp.Compile(pattern); err != nil {
			return invalidConfigErr("whitespace", "does not compile", err)
		}
		c.WhitespacePattern = pattern
		return nil
	}
}

// DefaultConfig returns the configuration used when a caller supplies no
// options at all: English stopwords, '*' wildcard, case-insensitive
// matching, and no stemming (callers opt into stemming explicitly by
// installing their own StemFunc via WithStemmer, mirroring the teacher's
// AnalyzerConfig / DefaultConfig two-tier default pattern).
func DefaultConfig() *Config {
	cfg := &Config{
		Locale:               "en",
		Charset:              "utf-8",
		Stopwords:            defaultStopwordSet(),
		Wildcard:             '*',
		WordChars:            `\p{L}\p{N}_`,
		IgnoreFirstChars:     `"'([{`,
		IgnoreLastChars:      `"'.,;:!?)]}`,
		AndWord:              "AND",
		OrWord:               "OR",
		NotWord:              "NOT",
		PhraseDelim:          '"',
		IgnoreCase:           true,
		IgnoreFields:         map[string]struct{}{},
		TreatURIsLikePhrases: true,
		Stemmer:              nil,
		TagPattern:           `<[^>]*>`,
		WhitespacePattern:    `(?:\s|&nbsp;|&#160;|&#[xX]0*[aA]0;)`,
	}
	bounds, err := buildBoundaryTables(cfg)
	if err != nil {
		// The built-in defaults must always be valid; a failure here is a
		// programming error in this package, not a caller mistake.
		panic("qsnippet: default configuration failed to compile: " + err.Error())
	}
	cfg.bounds = bounds
	return cfg
}

// NewConfig builds a Config from DefaultConfig plus the given options,
// deriving and validating the boundary regex tables (§4.1) once so that a
// *Config is cheap to reuse for many Query compilations.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	bounds, err := buildBoundaryTables(cfg)
	if err != nil {
		return nil, err
	}
	cfg.bounds = bounds
	return cfg, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// BOUNDARY TABLES (§4.1)
// ═══════════════════════════════════════════════════════════════════════════════

type boundaryTables struct {
	startBound string
	endBound   string

	plainPhraseBound string
	htmlPhraseBound  string

	wordClass         string // WordChars, the bare class body (no brackets)
	nonWordClass      string // "[^" + WordChars + "]"
	htmlSafeWordChars string // WordChars minus '<', '>', '&'

	entityPattern string // &[\w#]+;

	wordRe *regexp.Regexp // scans a value into word+optional-wildcard tokens
	isWord func(r rune) bool
}

// classEscape escapes characters that are special inside a `[...]` regex
// character class: backslash, ']', '^', and '-'.
func classEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ']', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripHTMLSpecials(classBody string) string {
	var b strings.Builder
	for _, r := range classBody {
		if r == '<' || r == '>' || r == '&' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func buildBoundaryTables(cfg *Config) (*boundaryTables, error) {
	wordClass := cfg.WordChars
	nonWordClass := "[^" + wordClass + "]"
	htmlSafe := stripHTMLSpecials(wordClass)
	entityPattern := `&[\w#]+;`

	firstClass := classEscape(cfg.IgnoreFirstChars)
	lastClass := classEscape(cfg.IgnoreLastChars)

	ws := cfg.WhitespacePattern
	if ws == "" {
		ws = `\s`
	}

	startBound := `(?:\A|>|` + entityPattern + `|` + ws + `|` + nonWordClass
	if firstClass != "" {
		startBound += `|[` + firstClass + `]`
	}
	startBound += `)`

	endBound := `(?:\z|<|&|` + ws + `|` + nonWordClass
	if lastClass != "" {
		endBound += `|[` + lastClass + `]`
	}
	endBound += `)`

	plainPhraseBound := ""
	if lastClass != "" {
		plainPhraseBound += `[` + lastClass + `]*`
	}
	plainPhraseBound += `(?:\s|` + nonWordClass + `)`
	if firstClass != "" {
		plainPhraseBound += `[` + firstClass + `]?`
	}

	htmlPhraseBound := ""
	if firstClass != "" {
		htmlPhraseBound += `[` + firstClass + `]*`
	}
	htmlPhraseBound += `(?:` + ws + `|` + nonWordClass + `)`
	if lastClass != "" {
		htmlPhraseBound += `[` + lastClass + `]?`
	}

	// Validate every fragment compiles in isolation before it is stitched
	// into larger per-term patterns later.
	for field, frag := range map[string]string{
		"start_bound":        startBound,
		"end_bound":          endBound,
		"plain_phrase_bound": plainPhraseBound,
		"html_phrase_bound":  htmlPhraseBound,
	} {
		if _, err := regexp.Compile(frag); err != nil {
			return nil, invalidConfigErr(field, "derived boundary pattern does not compile", err)
		}
	}

	quotedWildcard := regexp.QuoteMeta(string(cfg.Wildcard))
	wordRe, err := regexp.Compile(`[` + wordClass + `]+(?:` + quotedWildcard + `)?`)
	if err != nil {
		return nil, invalidConfigErr("word_characters", "does not compile into a scanner pattern", err)
	}

	isWordRe, err := regexp.Compile(`[` + wordClass + `]`)
	if err != nil {
		return nil, invalidConfigErr("word_characters", "does not compile into a class test", err)
	}
	isWord := func(r rune) bool { return isWordRe.MatchString(string(r)) }

	return &boundaryTables{
		startBound:        startBound,
		endBound:          endBound,
		plainPhraseBound:  plainPhraseBound,
		htmlPhraseBound:   htmlPhraseBound,
		wordClass:         wordClass,
		nonWordClass:      nonWordClass,
		htmlSafeWordChars: htmlSafe,
		entityPattern:     entityPattern,
		wordRe:            wordRe,
		isWord:            isWord,
	}, nil
}
