package quizengine

import (
	"math/rand/v2"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func word(w, meaning string, level entity.CEFRLevel, typ string) entity.Word {
	return entity.Word{
		Word:          w,
		Meaning:       meaning,
		Level:         level,
		Type:          typ,
		Pronunciation: "/" + w + "/",
		Examples:      []entity.Example{{EN: "This sentence uses " + w + " once."}},
	}
}

// testCorpus небольшой словарь с несколькими уровнями и частями речи
func testCorpus() []entity.Word {
	return []entity.Word{
		word("apple", "a red fruit", entity.LevelA1, "n."),
		word("house", "a building to live in", entity.LevelA1, "n."),
		word("water", "a clear liquid", entity.LevelA1, "n."),
		word("table", "furniture with legs", entity.LevelA1, "n."),
		word("run", "to move fast", entity.LevelA1, "v."),
		word("eat", "to consume food", entity.LevelA1, "v."),
		word("journey", "a trip", entity.LevelA2, "n."),
		word("ticket", "a travel pass", entity.LevelA2, "n."),
		word("borrow", "to take for a while", entity.LevelA2, "v."),
		word("achieve", "to succeed", entity.LevelB1, "v."),
		word("opinion", "what you think", entity.LevelB1, "n."),
		word("honest", "telling the truth", entity.LevelB1, "adj."),
		word("average", "usual", entity.LevelB1, "adj., n."),
		word("ambiguous", "unclear", entity.LevelC1, "adj."),
	}
}
