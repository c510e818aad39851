package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Pattern Library:
// - FactoryHeaders matches `factory :name` and captures the name
// - FactoryHeaders rejects headers with a missing leading colon
// - FactoryHeaders reports correct byte offsets
// - ParentName extracts `parent: :name`
// - TraitHeaders matches `trait :name`
// - OpensBlock recognizes trailing `do` with and without block args
// - ClosesBlock recognizes `end` lines
// - NewLibrary rejects empty and invalid identifier lists
// - CallSites matches paren and paren-less calls and captures the rest
// - ReferenceTokens finds `:identifier` tokens with offsets
// - ValidName accepts letters/digits/underscore only

func TestFactoryHeaders_CapturesName(t *testing.T) {
	t.Parallel()

	headers := FactoryHeaders("factory :user do")
	require.Len(t, headers, 1)
	assert.Equal(t, "user", headers[0].Name)
	assert.Equal(t, 0, headers[0].Offset)
	assert.Equal(t, 8, headers[0].NameOffset)
}

func TestFactoryHeaders_MissingColonSilentlyFailsToMatch(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FactoryHeaders("factory user do"))
	assert.Empty(t, FactoryHeaders(`factory "user" do`))
}

func TestFactoryHeaders_IgnoresEmbeddedWords(t *testing.T) {
	t.Parallel()

	// `subfactory` must not register as a factory keyword.
	assert.Empty(t, FactoryHeaders("sub_factory :user do"))
}

func TestFactoryHeaders_MultipleOnOneText(t *testing.T) {
	t.Parallel()

	text := "factory :user do\nend\nfactory :post do\nend\n"
	headers := FactoryHeaders(text)
	require.Len(t, headers, 2)
	assert.Equal(t, "user", headers[0].Name)
	assert.Equal(t, "post", headers[1].Name)
	assert.Less(t, headers[0].Offset, headers[1].Offset)
}

func TestParentName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user", ParentName("factory :admin, parent: :user do"))
	assert.Equal(t, "", ParentName("factory :admin do"))
}

func TestTraitHeaders_CapturesName(t *testing.T) {
	t.Parallel()

	headers := TraitHeaders("  trait :published do")
	require.Len(t, headers, 1)
	assert.Equal(t, "published", headers[0].Name)
	assert.Equal(t, 8, headers[0].NameOffset)
}

func TestOpensBlock(t *testing.T) {
	t.Parallel()

	assert.True(t, OpensBlock("factory :user do"))
	assert.True(t, OpensBlock("factory :user do |u|"))
	assert.True(t, OpensBlock("  before(:create) do  "))
	assert.False(t, OpensBlock("name { 'John' }"))
	assert.False(t, OpensBlock("  double_trouble"))
	assert.False(t, OpensBlock("factory :user"))
}

func TestClosesBlock(t *testing.T) {
	t.Parallel()

	assert.True(t, ClosesBlock("end"))
	assert.True(t, ClosesBlock("  end"))
	assert.False(t, ClosesBlock("ending"))
	assert.False(t, ClosesBlock("# end of story"))
}

func TestNewLibrary_RejectsEmptyIdentifierList(t *testing.T) {
	t.Parallel()

	_, err := NewLibrary(nil)
	assert.Error(t, err)
}

func TestNewLibrary_RejectsInvalidIdentifier(t *testing.T) {
	t.Parallel()

	_, err := NewLibrary([]string{"create", "bu(ild"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bu(ild")
}

func TestCallSites_ParenCall(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary([]string{"create", "build"})
	require.NoError(t, err)

	sites := lib.CallSites("user = create(:user, :admin, name: 'Ada')")
	require.Len(t, sites, 1)
	assert.Equal(t, "user", sites[0].FactoryName)
	assert.Equal(t, ":admin", sites[0].Rest[2:8])
	// FactoryOffset points at the ':' of the first symbol.
	assert.Equal(t, byte(':'), "user = create(:user, :admin, name: 'Ada')"[sites[0].FactoryOffset])
}

func TestCallSites_ParenlessCall(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary([]string{"create"})
	require.NoError(t, err)

	sites := lib.CallSites("create :user, :admin")
	require.Len(t, sites, 1)
	assert.Equal(t, "user", sites[0].FactoryName)
	assert.Contains(t, sites[0].Rest, ":admin")
}

func TestCallSites_UnknownIdentifierDoesNotMatch(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary([]string{"create"})
	require.NoError(t, err)

	assert.Empty(t, lib.CallSites("destroy(:user)"))
}

func TestReferenceTokens(t *testing.T) {
	t.Parallel()

	tokens := ReferenceTokens(", :admin, :banned")
	require.Len(t, tokens, 2)
	assert.Equal(t, "admin", tokens[0].Name)
	assert.Equal(t, 2, tokens[0].Offset)
	assert.Equal(t, "banned", tokens[1].Name)
}

func TestReferenceTokens_SkipsHashKeys(t *testing.T) {
	t.Parallel()

	// `name:` is a hash key, not a symbol reference.
	assert.Empty(t, ReferenceTokens("name: 'Ada'"))
}

func TestValidName(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidName("user_2"))
	assert.True(t, ValidName("create_list"))
	assert.False(t, ValidName("user-2"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("user name"))
}
