package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocType(t *testing.T) {
	cases := []struct {
		in   string
		want DocType
		ok   bool
	}{
		{"receipt", Receipt, true},
		{"RECEIPT", Receipt, true},
		{"  Resume ", Resume, true},
		{"invoice", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDocType(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestMapExtToFormat(t *testing.T) {
	assert.Equal(t, PDF, MapExtToFormat(".pdf"))
	assert.Equal(t, PDF, MapExtToFormat("PDF"))
	assert.Equal(t, IMAGE, MapExtToFormat("jpg"))
	assert.Equal(t, IMAGE, MapExtToFormat(".HEIC"))
	assert.Equal(t, IMAGE, MapExtToFormat("webp"))
	assert.Equal(t, "", MapExtToFormat(".docx"))
	assert.Equal(t, "", MapExtToFormat(""))
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExt(".PDF"))
	assert.Equal(t, "jpeg", NormalizeExt("jpeg"))
}

func TestIsHEICExt(t *testing.T) {
	assert.True(t, IsHEICExt(".heic"))
	assert.True(t, IsHEICExt("HEIF"))
	assert.False(t, IsHEICExt("png"))
}

func TestCanonicalize(t *testing.T) {
	cat, ok := Canonicalize("groceries")
	require.True(t, ok)
	assert.Equal(t, Groceries, cat)

	cat, ok = Canonicalize("Supermarket")
	require.True(t, ok)
	assert.Equal(t, Groceries, cat)

	cat, ok = Canonicalize("uber")
	require.True(t, ok)
	assert.Equal(t, Transportation, cat)

	cat, ok = Canonicalize("officesupplies")
	require.True(t, ok)
	assert.Equal(t, OfficeSupplies, cat)

	cat, ok = Canonicalize("crypto mining")
	assert.False(t, ok)
	assert.Equal(t, Other, cat)

	cat, ok = Canonicalize("")
	assert.False(t, ok)
	assert.Equal(t, Other, cat)
}

func TestCategoriesContainsTaxonomy(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, len(allCategories))
	assert.Contains(t, cats, "Groceries")
	assert.Contains(t, cats, "Other")
}
