// Package classify decides whether a song is "local" (Hindi / regional
// Indian) or "global". Resolve is the single categorization policy; nothing
// else in the module should look at the keyword list.
package classify

import (
	"strings"

	"musicbox/model"
)

// keywords are matched as plain substrings of the lower-cased
// "name artist" text. Short entries such as "ho" or "me" match inside
// longer words as well; that is how the heuristic has always behaved.
var keywords = []string{
	// Hindi/Bollywood
	"hindi", "bollywood", "desi", "bhojpuri", "haryanvi",
	// regional languages
	"punjabi", "tamil", "telugu", "malayalam", "kannada", "bengali",
	"gujarati", "marathi", "assamese", "odia", "urdu",
	// common Hindi/Urdu words
	"meri", "tera", "tere", "mere", "pyaar", "pyar", "ishq", "dil", "mohabbat",
	"jaan", "sanam", "aashiq", "bewafa", "judaai", "milna", "bichhna",
	"yaad", "sapna", "khushi", "gham", "zindagi", "jindagi", "main", "tu", "tum",
	"hum", "wo", "woh", "ye", "yeh", "hai", "hoon", "ho", "ka", "ki", "ke", "se", "me",
	// composers and singers
	"rahman", "shankar", "ehsaan", "loy", "vishal", "shekhar", "pritam", "anirudh",
	"ilaiyaraaja", "harris", "jayaram", "devi", "prasad", "kumar", "sanu",
	"mangeshkar", "lata", "asha", "bhosle", "rafi", "kishore", "mukesh", "udit", "alka",
	// film industries
	"tollywood", "kollywood", "mollywood", "sandalwood",
	// day/time words
	"aaj", "kal", "raat", "din", "subah", "shaam", "chand", "sitare", "sapne",
}

// Keywords returns a copy of the keyword list.
func Keywords() []string {
	out := make([]string, len(keywords))
	copy(out, keywords)
	return out
}

// Classify applies the keyword heuristic to a name and an optional artist.
func Classify(name, artist string) model.Category {
	text := strings.ToLower(name + " " + artist)
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return model.CategoryLocal
		}
	}
	return model.CategoryGlobal
}

// Resolve returns the category a song should be shown under:
// an explicit valid category wins, then language "english" means global,
// then the keyword heuristic.
func Resolve(category model.Category, language, name, artist string) model.Category {
	c := model.Category(strings.ToLower(strings.TrimSpace(string(category))))
	if c.Valid() {
		return c
	}
	if strings.EqualFold(strings.TrimSpace(language), "english") {
		return model.CategoryGlobal
	}
	return Classify(name, artist)
}

// ResolveSong is Resolve applied to a stored song.
func ResolveSong(s *model.Song) model.Category {
	return Resolve(s.Category, s.Language, s.Name, s.Artist)
}
