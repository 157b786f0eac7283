package collectors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opinionscience/wikimetron/internal/models"
)

func TestIsIPUser(t *testing.T) {
	assert.True(t, IsIPUser("192.0.2.7"))
	assert.True(t, IsIPUser("2001:db8::1"))
	assert.False(t, IsIPUser("Alice"))
	assert.False(t, IsIPUser("~2024-12345-67"))
}

func TestIsTemporaryAccount(t *testing.T) {
	assert.True(t, IsTemporaryAccount("~2024-12345"))
	assert.True(t, IsTemporaryAccount("~2024-12345-67"))
	assert.False(t, IsTemporaryAccount("~badly-formed"))
	assert.False(t, IsTemporaryAccount("Alice"))
}

func TestIsBotName(t *testing.T) {
	assert.True(t, IsBotName("ClueBot NG"))
	assert.True(t, IsBotName("InternetArchiveBot"))
	assert.True(t, IsBotName("MediaWiki message delivery"))
	assert.False(t, IsBotName("Alice"))
}

func TestClassifyEditor(t *testing.T) {
	cases := []struct {
		rev  models.Revision
		want string
	}{
		{models.Revision{User: "192.0.2.7", Anonymous: true}, EditorAnonymous},
		{models.Revision{User: "~2024-99-1"}, EditorAnonymous},
		{models.Revision{User: "SpamFixBot"}, EditorBot},
		{models.Revision{User: "Alice"}, EditorRegistered},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyEditor(tc.rev), tc.rev.User)
	}
}

func TestCountRefTags(t *testing.T) {
	text := `Intro.<ref>{{cite web|url=https://a.example}}</ref> More.<ref name="x"> y</ref><references/>`
	assert.Equal(t, 2, countRefTags(text))
	assert.Equal(t, 0, countRefTags("no references here"))
}

func TestExtractHosts(t *testing.T) {
	text := `See https://Example.com/a and http://news.example.org/b?q=1 plus https://example.com/c.`
	assert.Equal(t, []string{"example.com", "news.example.org", "example.com"}, extractHosts(text))
	assert.Empty(t, extractHosts("nothing to see"))
}

func TestCountCitationNeeded(t *testing.T) {
	en := `A claim.{{Citation needed|date=May 2024}} Another.{{cn}} Fine.{{cite web|url=x}}`
	assert.Equal(t, 2, countCitationNeeded(en, "en"))

	fr := `Une affirmation.{{refnec}} Autre.{{Référence nécessaire|date=2024}}`
	assert.Equal(t, 2, countCitationNeeded(fr, "fr"))

	// Unknown language falls back to the default template set.
	assert.Equal(t, 1, countCitationNeeded("X.{{citation needed}}", "eo"))

	// A template name must not match as the prefix of a longer one.
	assert.Equal(t, 0, countCitationNeeded("X.{{cnote}}", "en"))
}

func TestCountCitationNeededNonLatin(t *testing.T) {
	cases := []struct {
		lang string
		text string
		want int
	}{
		{"ja", "本文です。{{要出典}}", 1},
		{"ja", "本文です。{{要出典|date=2024年5月}}", 1},
		{"ru", "Утверждение.{{нет источника}} Ещё.{{Нет источника|дата=2024}}", 2},
		{"zh", "一个说法。{{来源请求}}", 1},
		{"ar", "ادعاء.{{مصدر مطلوب}}", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, countCitationNeeded(tc.text, tc.lang), tc.lang)
	}
}

func TestRefHosts(t *testing.T) {
	text := `A.<ref>{{cite web|url=https://a.example/x}}</ref> B.<ref>https://b.example/y and https://a.example/z</ref>
Outside https://c.example/ignored.`
	assert.Equal(t, []string{"a.example", "b.example", "a.example"}, refHosts(text))
}

func TestTalkTitle(t *testing.T) {
	assert.Equal(t, "Discussion:France", TalkTitle("fr", "France"))
	assert.Equal(t, "Diskussion:Berlin", TalkTitle("de", "Berlin"))
	assert.Equal(t, "Talk:Tallinn", TalkTitle("xx", "Tallinn"))
}
