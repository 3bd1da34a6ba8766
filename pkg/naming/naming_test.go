package naming

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Morning Show", "morning_show"},
		{"Café del Mar", "cafe_del_mar"},
		{"Ñandú  Crónicas", "nandu_cronicas"},
		{"Über\tMorgen", "uber_morgen"},
		{"İstanbul Nights", "istanbul_nights"},
		{"already_normal", "already_normal"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	titles := []string{
		"Morning Show",
		"  Leading and trailing  ",
		"Çà et là — Émission spéciale",
		"Ångström Ørsted Œuvre",
		"ÀÉÎÕÜ  ñ ç",
		"İIıi",
		"日本語 ラジオ",
	}

	for _, title := range titles {
		once := Normalize(title)
		assert.Equal(t, once, Normalize(once), "title %q", title)
	}
}

func TestNormalize_StripsDiacriticsAndSpaces(t *testing.T) {
	titles := []string{"Émission Spéciale", "Crème Brûlée Hour", "São Paulo Ao Vivo"}

	for _, title := range titles {
		out := Normalize(title)
		assert.NotContains(t, out, " ")
		assert.Equal(t, strings.ToLower(out), out)
		for _, r := range norm.NFD.String(out) {
			assert.False(t, unicode.Is(unicode.Mn, r), "combining mark left in %q", out)
		}
	}
}

func TestNormalize_ReplacesEveryUnicodeSpace(t *testing.T) {
	for r := rune(0); r <= 0x3000; r++ {
		if !unicode.IsSpace(r) {
			continue
		}
		assert.Equal(t, "a_b", Normalize("a"+string(r)+"b"), "space %U", r)
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "news-sport", SafeName("News/Sport"))
	assert.Equal(t, "what", SafeName("What?"))
	assert.Equal(t, "untitled", SafeName("  "))
	assert.Equal(t, "untitled", SafeName(".."))
}

func TestEpisodeFileName(t *testing.T) {
	startedAt := time.Date(2026, 10, 17, 6, 0, 5, 999, time.UTC)

	assert.Equal(t, "morning_show_2026-10-17_06-00-05.mp3", EpisodeFileName("Morning Show", "MP3", startedAt))
	assert.Equal(t, "morning_show_2026-10-17_06-00-05.aac", EpisodeFileName("Morning Show", ".aac", startedAt))

	// Same title within the same second collides.
	later := startedAt.Add(500 * time.Millisecond)
	assert.Equal(t, EpisodeFileName("Morning Show", "mp3", startedAt), EpisodeFileName("Morning Show", "mp3", later))
}
