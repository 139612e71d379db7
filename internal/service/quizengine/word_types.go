package quizengine

import "strings"

// wordTypeLabels расшифровка сокращений частей речи
var wordTypeLabels = map[string]string{
	"n.":       "Noun",
	"v.":       "Verb",
	"adj.":     "Adjective",
	"adv.":     "Adverb",
	"prep.":    "Preposition",
	"conj.":    "Conjunction",
	"pron.":    "Pronoun",
	"det.":     "Determiner",
	"int.":     "Interjection",
	"interj.":  "Interjection",
	"num.":     "Number",
	"phr. v.":  "Phrasal Verb",
	"modal v.": "Modal Verb",
	"aux. v.":  "Auxiliary Verb",
}

// WordTypeLabel возвращает читаемое название части речи.
// Составные типы ("adj., n.") расшифровываются по частям, неизвестные возвращаются как есть.
func WordTypeLabel(wordType string) string {
	trimmed := strings.TrimSpace(wordType)
	if label, ok := wordTypeLabels[strings.ToLower(trimmed)]; ok {
		return label
	}
	if !strings.Contains(trimmed, ",") {
		return wordType
	}

	parts := strings.Split(trimmed, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if label, ok := wordTypeLabels[strings.ToLower(p)]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, p)
		}
	}
	return strings.Join(labels, " / ")
}
