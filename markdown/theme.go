package markdown

import (
	"fmt"
	"io"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// tokenVars maps a CSS custom property to the chroma classes it colors.
var tokenVars = []struct {
	name    string
	classes []string
}{
	{"--astro-code-token-keyword", []string{"k", "kc", "kd", "kn", "kp", "kr", "kt", "nt"}},
	{"--astro-code-token-constant", []string{"m", "mb", "mf", "mh", "mi", "il", "mo", "bp", "no"}},
	{"--astro-code-token-string", []string{"s", "sa", "sb", "sc", "dl", "sd", "s2", "sh", "sx", "sr", "s1", "ss"}},
	{"--astro-code-token-string-expression", []string{"se", "si"}},
	{"--astro-code-token-comment", []string{"c", "ch", "cm", "c1", "cs", "cp", "cpf"}},
	{"--astro-code-token-function", []string{"nf", "fm", "nb", "nc", "nd"}},
	{"--astro-code-token-parameter", []string{"nv", "vc", "vg", "vi", "vm", "na"}},
	{"--astro-code-token-punctuation", []string{"p", "o", "ow"}},
	{"--astro-code-token-link", []string{"nl", "gu"}},
}

// WriteThemeCSS writes the stylesheet for highlighted code blocks. The
// css-variables theme produces rules that read colors from CSS custom
// properties; any other theme must name a chroma style.
func WriteThemeCSS(w io.Writer, theme string) error {
	if theme == "" || theme == CSSVariablesTheme {
		return writeVariablesCSS(w)
	}
	style, ok := styles.Registry[strings.ToLower(theme)]
	if !ok {
		return fmt.Errorf("unknown highlighting theme %q", theme)
	}
	return chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(w, style)
}

// KnownTheme reports whether theme can be passed to WriteThemeCSS.
func KnownTheme(theme string) bool {
	if theme == CSSVariablesTheme {
		return true
	}
	_, ok := styles.Registry[strings.ToLower(theme)]
	return ok
}

func writeVariablesCSS(w io.Writer) error {
	var b strings.Builder
	b.WriteString(".chroma { color: var(--astro-code-color-text); background-color: var(--astro-code-color-background); }\n")
	b.WriteString(".chroma .hl { background-color: var(--astro-code-color-highlight, rgba(127,127,127,.15)); display: block; }\n")
	b.WriteString(".chroma .ln, .chroma .lnt { color: var(--astro-code-token-comment); margin-right: .75em; user-select: none; }\n")
	for _, tv := range tokenVars {
		sel := make([]string, len(tv.classes))
		for i, c := range tv.classes {
			sel[i] = ".chroma ." + c
		}
		fmt.Fprintf(&b, "%s { color: var(%s); }\n", strings.Join(sel, ", "), tv.name)
	}
	b.WriteString(".chroma .ge { font-style: italic; }\n")
	b.WriteString(".chroma .gs { font-weight: bold; }\n")
	_, err := io.WriteString(w, b.String())
	return err
}
