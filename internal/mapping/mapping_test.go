package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMapping = `com.example.UserService -> a.b.c:
    int profileId -> seed
    java.lang.String displayName -> d
    4:7:void fetchProfile() -> e
    8:10:void fetchProfile(int) -> e
com.example.Helper -> a.b.h:
    int[] scores -> s
`

func TestParseAndDeobfuscate(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleMapping))
	require.NoError(t, err)

	assert.Equal(t, 2, m.ClassCount())
	assert.Equal(t, 5, m.MemberCount())

	orig, ok := m.DeobfuscateClass("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "com.example.UserService", orig)

	field, ok := m.DeobfuscateField("a.b.c", "seed")
	require.True(t, ok)
	assert.Equal(t, "profileId", field)

	raw, ok := m.ObfuscateField("a.b.c", "profileId")
	require.True(t, ok)
	assert.Equal(t, "seed", raw)

	_, ok = m.DeobfuscateField("a.b.c", "nonexistent")
	assert.False(t, ok)
}

func TestDeobfuscateMethodByArity(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleMapping))
	require.NoError(t, err)

	name, ok := m.DeobfuscateMethod("a.b.c", "e", 0, true)
	require.True(t, ok)
	assert.Equal(t, "fetchProfile", name)

	name, ok = m.DeobfuscateMethod("a.b.c", "e", 1, true)
	require.True(t, ok)
	assert.Equal(t, "fetchProfile", name)

	name, ok = m.DeobfuscateMethod("a.b.c", "e", 0, false)
	require.True(t, ok)
	assert.Equal(t, "fetchProfile", name)
}

func TestDeobfuscateTypeNamePreservesArraySuffix(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleMapping))
	require.NoError(t, err)

	assert.Equal(t, "com.example.UserService[]", m.DeobfuscateTypeName("a.b.c[]"))
	assert.Equal(t, "int[]", m.DeobfuscateTypeName("int[]"))
}

func TestParseRejectsMalformedHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("not a valid header\n"))
	assert.Error(t, err)
}
