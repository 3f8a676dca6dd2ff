// Package registry is the static catalog of news sources: base URLs, RSS
// feeds, URL filters and per-source extraction profiles. It is the single
// place where site quirks live; the rest of the pipeline is source-agnostic.
package registry

import (
	"fmt"
	"sort"

	"veritasnews/internal/domain/entity"
)

// AcceptPatterns are URL path substrings that mark a link as a probable
// article. A candidate URL must contain at least one of them.
var AcceptPatterns = []string{
	"/haberi/", "/haber/", "/news/", "/gundem/", "/spor/", "/yasam/",
	"/dunya/", "/turkiye/", "/ekonomi/", "/teknoloji/", "/siyaset/",
	"/sondakika/", "/son-dakika/", "/son_dakika/", "/son-24-saat/",
	"/daily/", "/kategori/1/", "/kategori/2/", "/kategori/3/",
	"/kategori/4/", "/kategori/5/", "/kategori/6/", "/kategori/7/",
	"/yazi/", "/2024/", "/2025/", "-p", "/sondakika-haberleri/",
}

// RejectPatterns exclude galleries, videos and infrastructure paths that are
// never article pages.
var RejectPatterns = []string{
	"/galeri/", "/foto/", "/foto-haber/", "/video/", "/video-haber/",
	"/foto_haber/", "/video_haber/", "/fotohaber/", "/videohaber/",
	"/cdn-cgi/", "/email-protection",
}

// sources is the catalog. Profiles are ordered: the first selector set whose
// paragraph selector yields non-empty text wins; sources without a profile
// rely on JSON-LD and the generic fallbacks.
var sources = map[string]entity.Source{
	"nefes": {
		Slug: "nefes", Name: "Nefes", BaseURL: "https://www.nefes.com.tr/",
		Profile: []entity.SelectorSet{
			{Title: "h1.single-title", Paragraphs: "div.news-content p", Date: "time", Image: "div.news-content img"},
		},
	},
	"diken": {
		Slug: "diken", Name: "Diken", BaseURL: "https://www.diken.com.tr/",
	},
	"gazete_duvar": {
		Slug: "gazete_duvar", Name: "Gazete Duvar", BaseURL: "https://www.gazeteduvar.com.tr/",
		Profile: []entity.SelectorSet{
			{Title: "h1.content-title", Paragraphs: "div.content-text p"},
		},
	},
	"evrensel": {
		Slug: "evrensel", Name: "Evrensel", BaseURL: "https://www.evrensel.net/",
		Profile: []entity.SelectorSet{
			{Title: "h1.title", Paragraphs: "div.haber-icerik p"},
			{Title: "h1", Paragraphs: "article p"},
		},
	},
	"sozcu": {
		Slug: "sozcu", Name: "Sözcü", BaseURL: "https://www.sozcu.com.tr/",
		RSSURLs: []string{"https://www.sozcu.com.tr/feeds-rss-category-sozcu"},
	},
	"sendika": {
		Slug: "sendika", Name: "Sendika.Org", BaseURL: "https://www.sendika.org/",
		Profile: []entity.SelectorSet{
			{Title: "h3.title", Paragraphs: "div.post-content p"},
		},
	},
	"gercek_gundem": {
		Slug: "gercek_gundem", Name: "Gerçek Gündem", BaseURL: "https://www.gercekgundem.com/",
	},
	"tele1": {
		Slug: "tele1", Name: "Tele1", BaseURL: "https://tele1.com.tr/",
	},
	"artigercek": {
		Slug: "artigercek", Name: "Artı Gerçek", BaseURL: "https://artigercek.com/",
	},
	"politikyol": {
		Slug: "politikyol", Name: "PolitikYol", BaseURL: "https://www.politikyol.com/",
	},
	"halktv": {
		Slug: "halktv", Name: "Halk TV", BaseURL: "https://www.halktv.com.tr/",
	},
	"haber_sol": {
		Slug: "haber_sol", Name: "soL Haber", BaseURL: "https://haber.sol.org.tr/",
		Profile: []entity.SelectorSet{
			{Title: "h1.node-title", Paragraphs: "div.field-name-body p"},
		},
	},
	"trt_haber": {
		Slug: "trt_haber", Name: "TRT Haber", BaseURL: "https://www.trthaber.com/",
	},
	"milliyet": {
		Slug: "milliyet", Name: "Milliyet", BaseURL: "https://www.milliyet.com.tr/",
	},
	"hurriyet": {
		Slug: "hurriyet", Name: "Hürriyet", BaseURL: "https://www.hurriyet.com.tr/",
	},
	"cumhuriyet": {
		Slug: "cumhuriyet", Name: "Cumhuriyet", BaseURL: "https://www.cumhuriyet.com.tr/",
	},
	"ntv": {
		Slug: "ntv", Name: "NTV", BaseURL: "https://www.ntv.com.tr/",
		Profile: []entity.SelectorSet{
			{Title: "h1.category-detail-title", Paragraphs: "div.category-detail-content p"},
		},
	},
	"ahaber": {
		Slug: "ahaber", Name: "A Haber", BaseURL: "https://www.ahaber.com.tr/",
	},
	"cnnturk": {
		Slug: "cnnturk", Name: "CNN Türk", BaseURL: "https://www.cnnturk.com/",
		Profile: []entity.SelectorSet{
			{Title: "h1.detail-title", Paragraphs: "div.detail-content p", Image: "div.detail-media img"},
		},
	},
	"sabah": {
		Slug: "sabah", Name: "Sabah", BaseURL: "https://www.sabah.com.tr/",
		Profile: []entity.SelectorSet{
			{Title: "h1.pageTitle", Paragraphs: "div.newsDetailText p"},
			{Title: "h1", Paragraphs: "div.newsBox p"},
		},
	},
	"haberturk": {
		Slug: "haberturk", Name: "Habertürk", BaseURL: "https://www.haberturk.com/",
		GenreOverride: "unknown",
	},
	"ensonhaber": {
		Slug: "ensonhaber", Name: "Ensonhaber", BaseURL: "https://www.ensonhaber.com/",
	},
	"posta": {
		Slug: "posta", Name: "Posta", BaseURL: "https://www.posta.com.tr/",
	},
	"takvim": {
		Slug: "takvim", Name: "Takvim", BaseURL: "https://www.takvim.com.tr/",
	},
	"yeni_safak": {
		Slug: "yeni_safak", Name: "Yeni Şafak", BaseURL: "https://www.yenisafak.com/",
		RSSURLs: []string{"https://www.yenisafak.com/rss?xml=gundem"},
	},
	"star": {
		Slug: "star", Name: "Star", BaseURL: "https://www.star.com.tr/",
	},
	"turkiye_gazetesi": {
		Slug: "turkiye_gazetesi", Name: "Türkiye Gazetesi", BaseURL: "https://www.turkiyegazetesi.com.tr/",
	},
	"dunya": {
		Slug: "dunya", Name: "Dünya", BaseURL: "https://www.dunya.com/",
	},
	"birgun": {
		Slug: "birgun", Name: "BirGün", BaseURL: "https://www.birgun.net/",
	},
	"t24": {
		Slug: "t24", Name: "T24", BaseURL: "https://t24.com.tr/",
		Profile: []entity.SelectorSet{
			{Title: "h1._2Mepd", Paragraphs: "div._32Jl4 p"},
			{Title: "h1", Paragraphs: "div[class*=\"content\"] p"},
		},
	},
	"bianet": {
		Slug: "bianet", Name: "Bianet", BaseURL: "https://bianet.org/",
	},
	"hurriyet_daily_news": {
		Slug: "hurriyet_daily_news", Name: "Hürriyet Daily News", BaseURL: "https://www.hurriyetdailynews.com/",
	},
	"daily_sabah": {
		Slug: "daily_sabah", Name: "Daily Sabah", BaseURL: "https://www.dailysabah.com/",
	},
}

// All returns every configured source in deterministic slug order.
func All() []entity.Source {
	out := make([]entity.Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Get returns the source for a slug.
func Get(slug string) (entity.Source, error) {
	s, ok := sources[slug]
	if !ok {
		return entity.Source{}, fmt.Errorf("unknown source slug %q", slug)
	}
	return s, nil
}

// Slugs returns the configured slugs in deterministic order.
func Slugs() []string {
	out := make([]string, 0, len(sources))
	for slug := range sources {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
