package nlu

import "golang.org/x/text/unicode/norm"

// stopwordList holds romanised and Devanagari function words, number words,
// greetings and filler verbs that never identify an intent on their own.
var stopwordList = []string{
	// Romanised
	"hai", "h", "ko", "se", "ka", "ki", "ke", "me", "mein",
	"aur", "tathaa", "evam", "kyon", "kya", "kab", "kaise",
	"kahan", "jab", "tab", "ab", "abhi", "bhi", "toh", "hi",
	"ji", "sir", "madam", "sunie", "suno", "hey", "hello",
	"kuch", "kuchh", "ek", "do", "teen", "char", "paanch",
	"batao", "dikhao", "karo", "de", "lo", "le", "baje",

	// Devanagari
	"है", "ह", "को", "से", "का", "की", "के", "में", "मे",
	"और", "तथा", "एवं", "क्यों", "क्या", "कब", "कैसे",
	"कहाँ", "जब", "तब", "अब", "अभी", "भी", "तो", "ही",
	"जी", "सर", "मैडम", "सुनिए", "सुनो", "हे", "हेलो", "हाय",
	"कुछ", "एक", "दो", "तीन", "चार", "पांच",
	"बताओ", "दिखाओ", "करो", "दे", "लो", "ले", "बजे",
}

var stopwords = func() map[string]struct{} {
	set := make(map[string]struct{}, len(stopwordList))
	for _, w := range stopwordList {
		set[norm.NFC.String(w)] = struct{}{}
	}
	return set
}()

// IsStopword reports whether the normalised token is a stopword.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// FilterNoise returns the tokens that are neither stopwords nor shorter than
// [MinTokenUnits], preserving order. The input is not modified.
func FilterNoise(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if IsStopword(t) || Units(t) < MinTokenUnits {
			continue
		}
		out = append(out, t)
	}
	return out
}
