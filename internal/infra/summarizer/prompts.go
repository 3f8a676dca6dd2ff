package summarizer

import "strings"

// The field prompts, in Turkish like the content they operate on. Each is
// prefixed to the combined article text of a group.
const (
	TitlePrompt    = "Bu haber makalelerine dayanarak, 3-4 kelimelik nesnel bir başlık oluşturun:"
	SummaryPrompt  = "Bu haber makalelerine dayanarak, 10-50 karakter arasında kısa, betimleme içermeyen, salt bilgi içeren bir özet oluşturun:"
	DetailedPrompt = "Bu haber makalelerine dayanarak, detaylı ve salt bilgi içeren bir özet oluşturun:"
)

// FallbackCategory is assigned when the model proposes nothing usable.
const FallbackCategory = "Genel"

// Categories is the closed set of story categories.
var Categories = []string{
	"Siyaset", "Eğlence", "Spor", "Teknoloji", "Sağlık", "Çevre", "Bilim",
	"Eğitim", "Ekonomi", "Seyahat", "Moda", "Kültür", "Suç", "Yemek",
	"Yaşam Tarzı", "İş Dünyası", "Dünya Haberleri", "Oyun", "Otomotiv",
	"Sanat", "Tarih", "Uzay", "İlişkiler", "Din", "Ruh Sağlığı", "Magazin",
}

// CategoryPrompt builds the category assignment prompt from the closed set.
func CategoryPrompt() string {
	return "Bu haber makalesini aşağıdaki kategorilerden birine atayın:\n" +
		strings.Join(Categories, ", ") +
		".\nEğer uygun değilse '" + FallbackCategory + "' yaz."
}

// NormalizeCategory maps a model answer onto the closed set. Models like to
// wrap the category in quotes or trailing punctuation; anything that still
// fails to match falls back to the general category.
func NormalizeCategory(raw string) string {
	cleaned := strings.Trim(strings.TrimSpace(raw), "'\"“”.,:;!")
	if cleaned == "" || cleaned == ErrorPlaceholder {
		return FallbackCategory
	}
	for _, c := range Categories {
		if strings.EqualFold(cleaned, c) {
			return c
		}
	}
	return FallbackCategory
}
