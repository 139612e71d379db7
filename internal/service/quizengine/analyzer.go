package quizengine

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// analyzedLevels уровни, по которым строится разбивка результата
var analyzedLevels = []entity.CEFRLevel{
	entity.LevelA1, entity.LevelA2, entity.LevelB1, entity.LevelB2, entity.LevelC1,
}

// Сообщения рекомендаций
const (
	recommendationLow       = "Keep practicing! Review the words you missed and try the quiz again."
	recommendationMedium    = "Good job! A little more practice and you will master these words."
	recommendationHigh      = "Excellent work! You have a strong command of these words."
	recommendationPromo     = "Practice speaking these words with your AI conversation partner to build fluency."
	recommendationLevelFmt  = "Focus on %s level words: you answered %d%% of them correctly."
	recommendationTypeFmt   = "Review %s: your accuracy was %d%%."
	recommendationPacingFmt = "Try to answer faster: you spent about %d seconds per question. Aim for under %d seconds."
)

// Analyze подводит итоги завершённой викторины. Детерминирована: без случайности и текущего времени.
func Analyze(quiz *entity.Quiz, corpus []entity.Word) *entity.QuizResult {
	byID := make(map[string]entity.Word, len(corpus))
	for _, w := range corpus {
		if _, ok := byID[w.ID()]; !ok {
			byID[w.ID()] = w
		}
	}

	total := quiz.TotalQuestions
	result := &entity.QuizResult{
		QuizID:           quiz.ID,
		UserID:           quiz.UserID,
		Difficulty:       quiz.Difficulty,
		TotalQuestions:   total,
		CorrectAnswers:   quiz.CorrectAnswers,
		WrongAnswers:     quiz.WrongAnswers,
		SkippedQuestions: quiz.SkippedQuestions,
		TotalScore:       percent(quiz.CorrectAnswers, total),
		SuccessRate:      percent(quiz.CorrectAnswers, total),
		TimeSpent:        timeSpentSeconds(quiz),
	}
	if quiz.CompletedAt != nil {
		completedAt := *quiz.CompletedAt
		result.CompletedAt = &completedAt
	}

	levelStats := make([]entity.LevelStat, len(analyzedLevels))
	levelIndex := make(map[entity.CEFRLevel]int, len(analyzedLevels))
	for i, l := range analyzedLevels {
		levelStats[i] = entity.LevelStat{Level: l}
		levelIndex[l] = i
	}
	var typeStats []entity.WordTypeStat
	typeIndex := make(map[string]int)

	for _, q := range quiz.Questions {
		word, ok := byID[q.WordID]
		if !ok {
			continue
		}
		correct := q.IsCorrect != nil && *q.IsCorrect

		if i, ok := levelIndex[word.Level]; ok {
			levelStats[i].Total++
			if correct {
				levelStats[i].Correct++
			}
		}

		label := WordTypeLabel(word.Type)
		i, ok := typeIndex[label]
		if !ok {
			i = len(typeStats)
			typeIndex[label] = i
			typeStats = append(typeStats, entity.WordTypeStat{Type: label})
		}
		typeStats[i].Total++
		if correct {
			typeStats[i].Correct++
		}
	}

	for i := range levelStats {
		levelStats[i].Percentage = percent(levelStats[i].Correct, levelStats[i].Total)
	}
	for i := range typeStats {
		typeStats[i].Percentage = percent(typeStats[i].Correct, typeStats[i].Total)
	}
	if typeStats == nil {
		typeStats = []entity.WordTypeStat{}
	}
	result.LevelAnalysis = levelStats
	result.WordTypeAnalysis = typeStats
	result.Recommendations = recommendations(result)

	return result
}

func recommendations(r *entity.QuizResult) []string {
	recs := make([]string, 0, 5)

	switch {
	case r.SuccessRate < 50:
		recs = append(recs, recommendationLow)
	case r.SuccessRate < 75:
		recs = append(recs, recommendationMedium)
	default:
		recs = append(recs, recommendationHigh)
	}

	recs = append(recs, recommendationPromo)

	weakestLevel := -1
	for i, s := range r.LevelAnalysis {
		if s.Total == 0 {
			continue
		}
		if weakestLevel < 0 || s.Percentage < r.LevelAnalysis[weakestLevel].Percentage {
			weakestLevel = i
		}
	}
	if weakestLevel >= 0 && r.LevelAnalysis[weakestLevel].Percentage < WeakAreaThreshold {
		s := r.LevelAnalysis[weakestLevel]
		recs = append(recs, fmt.Sprintf(recommendationLevelFmt, s.Level, s.Percentage))
	}

	weakestType := -1
	for i, s := range r.WordTypeAnalysis {
		if s.Total == 0 {
			continue
		}
		if weakestType < 0 || s.Percentage < r.WordTypeAnalysis[weakestType].Percentage {
			weakestType = i
		}
	}
	if weakestType >= 0 && r.WordTypeAnalysis[weakestType].Percentage < WeakAreaThreshold {
		s := r.WordTypeAnalysis[weakestType]
		recs = append(recs, fmt.Sprintf(recommendationTypeFmt, s.Type, s.Percentage))
	}

	if r.TotalQuestions > 0 {
		avg := float64(r.TimeSpent) / float64(r.TotalQuestions)
		if avg > SlowAnswerThreshold {
			recs = append(recs, fmt.Sprintf(recommendationPacingFmt, int(math.Round(avg)), SlowAnswerThreshold))
		}
	}

	return recs
}

// percent возвращает округлённый процент в диапазоне [0, 100]; 0 при total == 0
func percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) * 100 / float64(total)))
	if p > 100 {
		return 100
	}
	return p
}

// timeSpentSeconds возвращает длительность викторины в целых секундах
func timeSpentSeconds(quiz *entity.Quiz) int {
	if quiz.StartedAt.IsZero() || quiz.CompletedAt == nil {
		return 0
	}
	d := quiz.CompletedAt.Sub(quiz.StartedAt)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
