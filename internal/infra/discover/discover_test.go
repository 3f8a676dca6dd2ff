package discover

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasnews/internal/domain/entity"
)

func TestNormalizeURL(t *testing.T) {
	base, err := url.Parse("https://www.milliyet.com.tr/gundem/")
	require.NoError(t, err)

	abs, ok := NormalizeURL(base, "/gundem/haber-42")
	require.True(t, ok)
	assert.Equal(t, "https://www.milliyet.com.tr/gundem/haber-42", abs)

	abs, ok = NormalizeURL(base, "https://www.milliyet.com.tr/spor/mac#yorumlar")
	require.True(t, ok)
	assert.Equal(t, "https://www.milliyet.com.tr/spor/mac", abs, "fragment stripped")

	_, ok = NormalizeURL(base, "javascript:void(0)")
	assert.False(t, ok)

	_, ok = NormalizeURL(base, "mailto:info@milliyet.com.tr")
	assert.False(t, ok)

	_, ok = NormalizeURL(base, "   ")
	assert.False(t, ok)
}

func TestIsArticleURL(t *testing.T) {
	src := entity.Source{Slug: "milliyet", BaseURL: "https://www.milliyet.com.tr/"}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"accepted path", "https://www.milliyet.com.tr/gundem/deprem-oldu-123", true},
		{"bare www difference", "https://milliyet.com.tr/ekonomi/dolar-456", true},
		{"rejected gallery", "https://www.milliyet.com.tr/galeri/en-iyi-10", false},
		{"video under accepted section", "https://www.milliyet.com.tr/gundem/video/son-durum", false},
		{"foreign host", "https://www.hurriyet.com.tr/gundem/haber-1", false},
		{"no accept pattern", "https://www.milliyet.com.tr/hakkimizda", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsArticleURL(tt.url, src))
		})
	}
}

func TestIsArticleURL_ExtraAcceptPatterns(t *testing.T) {
	src := entity.Source{
		Slug:                "bianet",
		BaseURL:             "https://bianet.org/",
		ExtraAcceptPatterns: []string{"/toplum/"},
	}

	assert.True(t, IsArticleURL("https://bianet.org/toplum/bir-haber-275001", src))
	assert.False(t, IsArticleURL("https://bianet.org/yazarlar/biri", src))
}
