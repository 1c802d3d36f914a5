// Package languages holds the static table of languages offered in the pickers.
package languages

import (
	"translatorhub/internal/models"
	contextutils "translatorhub/internal/utils"
)

// Language is one row of the picker table
type Language struct {
	Code        models.LanguageCode `json:"code"`
	Name        string              `json:"name"`
	Flag        string              `json:"flag"`
	CountryCode string              `json:"countryCode"`
}

// Display renders the picker label, flag first
func (l Language) Display() string {
	return l.Flag + " " + l.Name
}

var supported = []Language{
	// Major languages
	{Code: "en", Name: "English", Flag: "🇺🇸", CountryCode: "US"},
	{Code: "si", Name: "Sinhala", Flag: "🇱🇰", CountryCode: "LK"},
	{Code: "ta", Name: "Tamil", Flag: "🇱🇰", CountryCode: "LK"},

	// European languages
	{Code: "es", Name: "Spanish", Flag: "🇪🇸", CountryCode: "ES"},
	{Code: "fr", Name: "French", Flag: "🇫🇷", CountryCode: "FR"},
	{Code: "de", Name: "German", Flag: "🇩🇪", CountryCode: "DE"},
	{Code: "it", Name: "Italian", Flag: "🇮🇹", CountryCode: "IT"},
	{Code: "pt", Name: "Portuguese", Flag: "🇵🇹", CountryCode: "PT"},
	{Code: "ru", Name: "Russian", Flag: "🇷🇺", CountryCode: "RU"},
	{Code: "nl", Name: "Dutch", Flag: "🇳🇱", CountryCode: "NL"},
	{Code: "sv", Name: "Swedish", Flag: "🇸🇪", CountryCode: "SE"},
	{Code: "no", Name: "Norwegian", Flag: "🇳🇴", CountryCode: "NO"},
	{Code: "da", Name: "Danish", Flag: "🇩🇰", CountryCode: "DK"},
	{Code: "fi", Name: "Finnish", Flag: "🇫🇮", CountryCode: "FI"},
	{Code: "pl", Name: "Polish", Flag: "🇵🇱", CountryCode: "PL"},
	{Code: "cs", Name: "Czech", Flag: "🇨🇿", CountryCode: "CZ"},
	{Code: "sk", Name: "Slovak", Flag: "🇸🇰", CountryCode: "SK"},
	{Code: "hu", Name: "Hungarian", Flag: "🇭🇺", CountryCode: "HU"},
	{Code: "ro", Name: "Romanian", Flag: "🇷🇴", CountryCode: "RO"},
	{Code: "bg", Name: "Bulgarian", Flag: "🇧🇬", CountryCode: "BG"},
	{Code: "hr", Name: "Croatian", Flag: "🇭🇷", CountryCode: "HR"},
	{Code: "sr", Name: "Serbian", Flag: "🇷🇸", CountryCode: "RS"},
	{Code: "sl", Name: "Slovenian", Flag: "🇸🇮", CountryCode: "SI"},
	{Code: "et", Name: "Estonian", Flag: "🇪🇪", CountryCode: "EE"},
	{Code: "lv", Name: "Latvian", Flag: "🇱🇻", CountryCode: "LV"},
	{Code: "lt", Name: "Lithuanian", Flag: "🇱🇹", CountryCode: "LT"},
	{Code: "mt", Name: "Maltese", Flag: "🇲🇹", CountryCode: "MT"},
	{Code: "ga", Name: "Irish", Flag: "🇮🇪", CountryCode: "IE"},
	{Code: "cy", Name: "Welsh", Flag: "🏴󠁧󠁢󠁷󠁬󠁳󠁿", CountryCode: "GB"},
	{Code: "eu", Name: "Basque", Flag: "🏴󠁥󠁳󠁰󠁶󠁿", CountryCode: "ES"},
	{Code: "ca", Name: "Catalan", Flag: "🏴󠁥󠁳󠁣󠁴󠁿", CountryCode: "ES"},

	// Asian languages
	{Code: "zh", Name: "Chinese (Simplified)", Flag: "🇨🇳", CountryCode: "CN"},
	{Code: "zh-TW", Name: "Chinese (Traditional)", Flag: "🇹🇼", CountryCode: "TW"},
	{Code: "ja", Name: "Japanese", Flag: "🇯🇵", CountryCode: "JP"},
	{Code: "ko", Name: "Korean", Flag: "🇰🇷", CountryCode: "KR"},
	{Code: "hi", Name: "Hindi", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "bn", Name: "Bengali", Flag: "🇧🇩", CountryCode: "BD"},
	{Code: "ur", Name: "Urdu", Flag: "🇵🇰", CountryCode: "PK"},
	{Code: "te", Name: "Telugu", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "mr", Name: "Marathi", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "gu", Name: "Gujarati", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "kn", Name: "Kannada", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "ml", Name: "Malayalam", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "pa", Name: "Punjabi", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "or", Name: "Odia", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "as", Name: "Assamese", Flag: "🇮🇳", CountryCode: "IN"},
	{Code: "ne", Name: "Nepali", Flag: "🇳🇵", CountryCode: "NP"},
	{Code: "my", Name: "Myanmar (Burmese)", Flag: "🇲🇲", CountryCode: "MM"},
	{Code: "th", Name: "Thai", Flag: "🇹🇭", CountryCode: "TH"},
	{Code: "lo", Name: "Lao", Flag: "🇱🇦", CountryCode: "LA"},
	{Code: "km", Name: "Khmer", Flag: "🇰🇭", CountryCode: "KH"},
	{Code: "vi", Name: "Vietnamese", Flag: "🇻🇳", CountryCode: "VN"},
	{Code: "id", Name: "Indonesian", Flag: "🇮🇩", CountryCode: "ID"},
	{Code: "ms", Name: "Malay", Flag: "🇲🇾", CountryCode: "MY"},
	{Code: "tl", Name: "Filipino", Flag: "🇵🇭", CountryCode: "PH"},
	{Code: "ceb", Name: "Cebuano", Flag: "🇵🇭", CountryCode: "PH"},

	// Middle Eastern & African languages
	{Code: "ar", Name: "Arabic", Flag: "🇸🇦", CountryCode: "SA"},
	{Code: "fa", Name: "Persian", Flag: "🇮🇷", CountryCode: "IR"},
	{Code: "he", Name: "Hebrew", Flag: "🇮🇱", CountryCode: "IL"},
	{Code: "tr", Name: "Turkish", Flag: "🇹🇷", CountryCode: "TR"},
	{Code: "sw", Name: "Swahili", Flag: "🇰🇪", CountryCode: "KE"},
	{Code: "am", Name: "Amharic", Flag: "🇪🇹", CountryCode: "ET"},
	{Code: "yo", Name: "Yoruba", Flag: "🇳🇬", CountryCode: "NG"},
	{Code: "ig", Name: "Igbo", Flag: "🇳🇬", CountryCode: "NG"},
	{Code: "ha", Name: "Hausa", Flag: "🇳🇬", CountryCode: "NG"},
	{Code: "zu", Name: "Zulu", Flag: "🇿🇦", CountryCode: "ZA"},
	{Code: "af", Name: "Afrikaans", Flag: "🇿🇦", CountryCode: "ZA"},

	// Other languages
	{Code: "is", Name: "Icelandic", Flag: "🇮🇸", CountryCode: "IS"},
	{Code: "mk", Name: "Macedonian", Flag: "🇲🇰", CountryCode: "MK"},
	{Code: "sq", Name: "Albanian", Flag: "🇦🇱", CountryCode: "AL"},
	{Code: "be", Name: "Belarusian", Flag: "🇧🇾", CountryCode: "BY"},
	{Code: "uk", Name: "Ukrainian", Flag: "🇺🇦", CountryCode: "UA"},
	{Code: "ka", Name: "Georgian", Flag: "🇬🇪", CountryCode: "GE"},
	{Code: "hy", Name: "Armenian", Flag: "🇦🇲", CountryCode: "AM"},
	{Code: "az", Name: "Azerbaijani", Flag: "🇦🇿", CountryCode: "AZ"},
	{Code: "kk", Name: "Kazakh", Flag: "🇰🇿", CountryCode: "KZ"},
	{Code: "ky", Name: "Kyrgyz", Flag: "🇰🇬", CountryCode: "KG"},
	{Code: "uz", Name: "Uzbek", Flag: "🇺🇿", CountryCode: "UZ"},
	{Code: "tg", Name: "Tajik", Flag: "🇹🇯", CountryCode: "TJ"},
	{Code: "mn", Name: "Mongolian", Flag: "🇲🇳", CountryCode: "MN"},
}

// Table is an immutable, ordered language table. It is safe for concurrent use.
type Table struct {
	langs  []Language
	byCode map[models.LanguageCode]int
}

var defaultTable = NewTable(supported)

// Default returns the built-in table
func Default() *Table {
	return defaultTable
}

// NewTable builds a table from langs, keeping the first row for a duplicated code
func NewTable(langs []Language) *Table {
	t := &Table{
		langs:  make([]Language, 0, len(langs)),
		byCode: make(map[models.LanguageCode]int, len(langs)),
	}
	for _, l := range langs {
		if _, dup := t.byCode[l.Code]; dup {
			continue
		}
		t.byCode[l.Code] = len(t.langs)
		t.langs = append(t.langs, l)
	}
	return t
}

// Lookup finds a language by exact code
func (t *Table) Lookup(code models.LanguageCode) (Language, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return Language{}, false
	}
	return t.langs[i], true
}

// Contains reports whether code is in the table
func (t *Table) Contains(code models.LanguageCode) bool {
	_, ok := t.byCode[code]
	return ok
}

// Display returns "<flag> <name>" for a known code and the raw code otherwise
func (t *Table) Display(code models.LanguageCode) string {
	if l, ok := t.Lookup(code); ok {
		return l.Display()
	}
	return string(code)
}

// Codes returns the codes in table order
func (t *Table) Codes() []models.LanguageCode {
	codes := make([]models.LanguageCode, len(t.langs))
	for i, l := range t.langs {
		codes[i] = l.Code
	}
	return codes
}

// All returns a copy of the table rows in order
func (t *Table) All() []Language {
	out := make([]Language, len(t.langs))
	copy(out, t.langs)
	return out
}

// Len returns the number of languages
func (t *Table) Len() int {
	return len(t.langs)
}

// Validate checks the code format and then table membership
func (t *Table) Validate(code models.LanguageCode) error {
	if err := ValidateCode(code); err != nil {
		return err
	}
	if !t.Contains(code) {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn,
			"Unsupported language: "+string(code), "")
	}
	return nil
}

// ValidateCode validates that a language code is properly formatted
func ValidateCode(code models.LanguageCode) error {
	if len(code) < 2 || len(code) > 10 {
		return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "Language code must be 2-10 characters", "")
	}

	// Basic validation - should be alphanumeric with possible hyphens
	for _, char := range code {
		if (char < 'a' || char > 'z') && (char < 'A' || char > 'Z') && (char < '0' || char > '9') && char != '-' {
			return contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "Invalid language code format", "")
		}
	}

	return nil
}
