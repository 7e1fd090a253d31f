package whisper

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoLanguage is the user-facing spelling of "let the model detect the language".
const AutoLanguage = "auto"

var ErrUnknownLanguage = errors.New("unknown language")

// Language is an optional whisper language code. The zero value requests auto-detection, so
// "no language" is never confused with an empty code.
type Language struct {
	code string
}

func AutoDetect() Language {
	return Language{}
}

// Code returns the language code and false when auto-detection was requested.
func (l Language) Code() (string, bool) {
	return l.code, l.code != ""
}

func (l Language) IsAuto() bool {
	return l.code == ""
}

func (l Language) String() string {
	if l.IsAuto() {
		return AutoLanguage
	}
	return l.code
}

// DisplayName is the English name of the language, e.g. "Spanish".
func (l Language) DisplayName() string {
	if l.IsAuto() {
		return "Auto-detect"
	}
	tag, err := language.Parse(l.code)
	if err != nil {
		return l.code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return l.code
}

// ParseLanguage accepts "", "auto" or anything that canonicalises to a code whisper knows
// ("ES", "es-ES" and "es" all yield es).
func ParseLanguage(raw string) (Language, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || value == AutoLanguage {
		return AutoDetect(), nil
	}

	if _, ok := whisperLanguages[value]; ok {
		return Language{code: value}, nil
	}

	tag, err := language.Parse(value)
	if err != nil {
		return Language{}, fmt.Errorf("%w %q", ErrUnknownLanguage, raw)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return Language{}, fmt.Errorf("%w %q", ErrUnknownLanguage, raw)
	}

	code := base.String()
	if alias, ok := whisperAliases[code]; ok {
		code = alias
	}
	if _, ok := whisperLanguages[code]; !ok {
		return Language{}, fmt.Errorf("%w %q", ErrUnknownLanguage, raw)
	}
	return Language{code: code}, nil
}

// MustLanguage is for package-level defaults and tests.
func MustLanguage(raw string) Language {
	lang, err := ParseLanguage(raw)
	if err != nil {
		panic(err)
	}
	return lang
}

// CommonLanguages is the short list offered by the interactive picker.
func CommonLanguages() []Language {
	return []Language{
		MustLanguage("es"),
		MustLanguage("en"),
		MustLanguage("fr"),
		MustLanguage("de"),
		MustLanguage("it"),
		MustLanguage("pt"),
		AutoDetect(),
	}
}

// whisper.cpp spells a few languages with codes that BCP 47 canonicalisation rewrites.
var whisperAliases = map[string]string{
	"jv":  "jw",
	"fil": "tl",
}

var whisperLanguages = map[string]struct{}{
	"en": {}, "zh": {}, "de": {}, "es": {}, "ru": {}, "ko": {}, "fr": {}, "ja": {}, "pt": {},
	"tr": {}, "pl": {}, "ca": {}, "nl": {}, "ar": {}, "sv": {}, "it": {}, "id": {}, "hi": {},
	"fi": {}, "vi": {}, "he": {}, "uk": {}, "el": {}, "ms": {}, "cs": {}, "ro": {}, "da": {},
	"hu": {}, "ta": {}, "no": {}, "th": {}, "ur": {}, "hr": {}, "bg": {}, "lt": {}, "la": {},
	"mi": {}, "ml": {}, "cy": {}, "sk": {}, "te": {}, "fa": {}, "lv": {}, "bn": {}, "sr": {},
	"az": {}, "sl": {}, "kn": {}, "et": {}, "mk": {}, "br": {}, "eu": {}, "is": {}, "hy": {},
	"ne": {}, "mn": {}, "bs": {}, "kk": {}, "sq": {}, "sw": {}, "gl": {}, "mr": {}, "pa": {},
	"si": {}, "km": {}, "sn": {}, "yo": {}, "so": {}, "af": {}, "oc": {}, "ka": {}, "be": {},
	"tg": {}, "sd": {}, "gu": {}, "am": {}, "yi": {}, "lo": {}, "uz": {}, "fo": {}, "ht": {},
	"ps": {}, "tk": {}, "nn": {}, "mt": {}, "sa": {}, "lb": {}, "my": {}, "bo": {}, "tl": {},
	"mg": {}, "as": {}, "tt": {}, "haw": {}, "ln": {}, "ha": {}, "ba": {}, "jw": {}, "su": {},
	"yue": {},
}
