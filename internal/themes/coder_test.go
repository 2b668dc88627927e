package themes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_EmptyText(t *testing.T) {
	cb := Default()
	assert.Empty(t, cb.Code(""))
	assert.Empty(t, cb.Code("   \t\n"))
}

func TestCode_SubstringMatch(t *testing.T) {
	cb := Default()

	got := cb.Code("I am worried about privacy and control")
	assert.Contains(t, got, Risk)
	assert.Contains(t, got, Control)
	assert.Contains(t, got, GeneralPrivacy)

	// No word boundaries: "uncontrolled" still matches "control".
	assert.Contains(t, cb.Code("the situation felt uncontrolled"), Control)
}

func TestCode_CaseInsensitive(t *testing.T) {
	cb := Default()
	got := cb.Code("PRIVACY matters and I want CONTROL")
	assert.Contains(t, got, GeneralPrivacy)
	assert.Contains(t, got, Control)
}

func TestCode_ThemeListedOnce(t *testing.T) {
	cb := Default()
	got := cb.Code("trust, trustworthy, reliable and honest")
	count := 0
	for _, th := range got {
		if th == Trust {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCode_MultipleThemesInCodebookOrder(t *testing.T) {
	cb := Default()
	got := cb.Code("I want to delete my data because of privacy and trust issues")
	// retention < trust < general_privacy in report order
	assert.Equal(t, []Theme{Retention, Trust, GeneralPrivacy}, got)
}

func TestCode_NoMatch(t *testing.T) {
	cb := Default()
	assert.Empty(t, cb.Code("xyzzy qwerty"))
}

func TestDefault_TenThemes(t *testing.T) {
	cb := Default()
	assert.Len(t, cb.Themes(), 10)
	assert.Equal(t, Transparency, cb.Themes()[0])
	assert.Equal(t, GeneralPrivacy, cb.Themes()[9])
}

func TestNewCodebook_LowersKeywords(t *testing.T) {
	cb := NewCodebook([]Theme{"custom"}, map[Theme][]string{"custom": {"FooBar"}})
	assert.Equal(t, []Theme{"custom"}, cb.Code("text with foobar inside"))
}
