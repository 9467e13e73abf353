package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolverFor(values map[string]Value) Resolver {
	return func(path []string) (Value, error) {
		key := path[0]
		for _, seg := range path[1:] {
			key += "." + seg
		}
		v, ok := values[key]
		if !ok {
			return Value{}, evalErrorf("no such variable or field: %s", key)
		}
		return v, nil
	}
}

func TestParse_Literals(t *testing.T) {
	cases := map[string]Value{
		`null`:      Null(),
		`true`:      Bool(true),
		`false`:     Bool(false),
		`42`:        Number(42),
		`3.14`:      Number(3.14),
		`"hello"`:   Text("hello"),
		`"a\nb\t\\"`: Text("a\nb\t\\"),
	}
	for src, want := range cases {
		t.Run(src, func(t *testing.T) {
			expr, err := Parse(src)
			require.NoError(t, err)
			got, err := expr.eval(nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_RejectsTrailingOperator(t *testing.T) {
	_, err := Parse("attempts >")
	require.Error(t, err)
	var syn *SyntaxError
	assert.ErrorAs(t, err, &syn)
}

func TestParse_RejectsMethodCall(t *testing.T) {
	_, err := Parse("x.y()")
	require.Error(t, err)
	var syn *SyntaxError
	assert.ErrorAs(t, err, &syn)
}

func TestParse_RejectsUnterminatedString(t *testing.T) {
	_, err := Parse(`"unterminated`)
	require.Error(t, err)
}

func TestParse_RejectsDanglingParen(t *testing.T) {
	_, err := Parse("(true")
	require.Error(t, err)
	_, err = Parse("true)")
	require.Error(t, err)
}

func TestEval_Comparisons(t *testing.T) {
	r := resolverFor(map[string]Value{
		"helper.seed":    Number(7),
		"helper.name":    Text("abc"),
		"helper.missing": Null(),
	})

	cases := []struct {
		src  string
		want bool
	}{
		{"helper.seed < 0", false},
		{"helper.seed > 0", true},
		{"helper.seed == 7", true},
		{"helper.seed != 7", false},
		{"helper.seed >= 7", true},
		{"helper.seed <= 6", false},
		{`helper.name == "abc"`, true},
		{"helper.missing == null", true},
		{"!(helper.seed < 0)", true},
		{"helper.seed > 0 && helper.name == \"abc\"", true},
		{"helper.seed < 0 || helper.name == \"abc\"", true},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			compiled, err := Compile(c.src)
			require.NoError(t, err)
			result := compiled.Eval(r)
			if c.want {
				assert.Equal(t, OutcomeTrue, result.Outcome)
			} else {
				assert.Equal(t, OutcomeFalse, result.Outcome)
			}
		})
	}
}

func TestEval_MissingPathIsError(t *testing.T) {
	r := resolverFor(map[string]Value{})
	compiled, err := Compile("missingVar > 0")
	require.NoError(t, err)
	result := compiled.Eval(r)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Message, "missingVar")
}

func TestEval_ObjectEqualityIsTypeError(t *testing.T) {
	r := resolverFor(map[string]Value{
		"a": Object("com.example.Foo"),
		"b": Object("com.example.Foo"),
	})
	compiled, err := Compile("a == b")
	require.NoError(t, err)
	result := compiled.Eval(r)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Message, TagConditionType)
}

func TestEval_NonNumericComparisonIsTypeError(t *testing.T) {
	r := resolverFor(map[string]Value{"name": Text("abc")})
	compiled, err := Compile(`name > 0`)
	require.NoError(t, err)
	result := compiled.Eval(r)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Message, TagConditionType)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.False(t, Number(0).Truthy())
	assert.True(t, Text("").Truthy())
	assert.True(t, Text("x").Truthy())
	assert.True(t, Object("X").Truthy())
	assert.False(t, Char(0).Truthy())
	assert.True(t, Char('a').Truthy())
}
