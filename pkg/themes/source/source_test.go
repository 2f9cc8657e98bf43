package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no comments", "body{color:red}", "body{color:red}"},
		{"empty", "", ""},
		{"single", "/* hi */body{}", "body{}"},
		{"multiline", "a{}\n/* one\ntwo\n*/\nb{}", "a{}\n\nb{}"},
		{"non greedy", "/* a */x/* b */y", "xy"},
		{"unterminated is kept", "a{} /* open", "a{} /* open"},
		{"joined opener", "//*c*/* x */y", "y"},
		{"line comment is kept", "// note\na{}", "// note\na{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StripComments(tt.in))
		})
	}
}

func TestStripComments_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"/**/",
		"/*/ x */",
		"//*c*/* x */",
		"/* a /* b */ c */ d",
		"a { b: c } /* x */ /* y",
		"/" + "/*1*/" + "/*2*/" + "* z */",
	}
	for _, in := range inputs {
		once := StripComments(in)
		assert.Equal(t, once, StripComments(once), "input %q", in)
	}
}

func FuzzStripComments(f *testing.F) {
	f.Add("body{color:red}")
	f.Add("/* a */b/* c")
	f.Add("//*c*/* x */")
	f.Fuzz(func(t *testing.T, in string) {
		once := StripComments(in)
		if twice := StripComments(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}

func TestExtractScrollbarRules(t *testing.T) {
	t.Parallel()

	content, rules := ExtractScrollbarRules("body::-webkit-scrollbar{width:1px} body{color:red}")

	assert.Equal(t, []string{"body::-webkit-scrollbar{width:1px}"}, rules)
	assert.Equal(t, " body{color:red}", content)
}

func TestExtractScrollbarRules_SourceOrder(t *testing.T) {
	t.Parallel()

	in := `.a { color: blue; }
::-webkit-scrollbar { width: 8px; }
.b { color: green; }
.CodeMirror ::-webkit-scrollbar-thumb:hover, ::-webkit-scrollbar-corner { background: #333; }
`
	content, rules := ExtractScrollbarRules(in)

	assert.Equal(t, []string{
		"::-webkit-scrollbar { width: 8px; }",
		".CodeMirror ::-webkit-scrollbar-thumb:hover, ::-webkit-scrollbar-corner { background: #333; }",
	}, rules)
	assert.Contains(t, content, ".a { color: blue; }")
	assert.Contains(t, content, ".b { color: green; }")
	assert.NotContains(t, content, "scrollbar")
}

func TestExtractScrollbarRules_KeepsPrecedingDeclaration(t *testing.T) {
	t.Parallel()

	content, rules := ExtractScrollbarRules(".editor { color: red; ::-webkit-scrollbar { width: 2px } }")

	assert.Equal(t, []string{"::-webkit-scrollbar { width: 2px }"}, rules)
	assert.Equal(t, ".editor { color: red; }", content)
}

func TestExtractScrollbarRules_NoRules(t *testing.T) {
	t.Parallel()

	content, rules := ExtractScrollbarRules("body{color:red}")

	assert.Empty(t, rules)
	assert.Equal(t, "body{color:red}", content)
}

// The scrollbar rule only exists inside a comment. Stripping first must drop
// it; running extraction on raw text would wrongly pick it up.
func TestExtractScrollbarRules_CommentsStrippedFirst(t *testing.T) {
	t.Parallel()

	in := "/* body::-webkit-scrollbar{width:1px} */ body{color:red}"

	_, rules := ExtractScrollbarRules(in)
	assert.Empty(t, rules)

	_, rules = extractScrollbarRules(StripComments(in))
	assert.Empty(t, rules)

	_, raw := extractScrollbarRules(in)
	assert.Len(t, raw, 1, "raw extraction matches inside the comment")
}
