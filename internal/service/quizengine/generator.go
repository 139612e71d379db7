package quizengine

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

// BlankPlaceholder заменяет слово в предложении для вопросов на заполнение пропуска
const BlankPlaceholder = "_____"

// Generator строит викторину из пула слов
type Generator struct {
	config *Config

	mu       sync.Mutex
	rng      *rand.Rand
	selector *DistractorSelector
}

// NewGenerator создает генератор. Если rng == nil, используется случайное зерно.
func NewGenerator(config *Config, rng *rand.Rand) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		config:   config,
		rng:      rng,
		selector: NewDistractorSelector(rng, config.LengthTolerance),
	}
}

// Generate создает викторину в статусе not-started.
// pool - слова, из которых берутся вопросы; corpus - словарь для подбора вариантов ответа.
func (g *Generator) Generate(userID string, pool, corpus []entity.Word, settings entity.QuizSettings) (*entity.Quiz, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: difficulty %s", apperrors.ErrNoWordsAtLevel, settings.Difficulty)
	}

	types := settings.UniqueQuestionTypes()
	if len(types) == 0 {
		types = []entity.QuestionType{entity.QuestionMultipleChoice}
	}

	count := settings.QuestionCount
	if count <= 0 {
		count = g.config.DefaultQuestionCount
	}
	if g.config.MaxQuestionCount > 0 && count > g.config.MaxQuestionCount {
		count = g.config.MaxQuestionCount
	}
	if count > len(pool) {
		count = len(pool)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	words := append([]entity.Word(nil), pool...)
	g.rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	words = words[:count]

	questions := make([]entity.QuizQuestion, 0, count)
	for _, w := range words {
		qType := types[g.rng.IntN(len(types))]
		q, err := g.buildQuestion(w, qType, corpus)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return &entity.Quiz{
		ID:             uuid.NewString(),
		UserID:         userID,
		Difficulty:     settings.Difficulty,
		TotalQuestions: len(questions),
		Questions:      questions,
		Status:         entity.QuizStatusNotStarted,
	}, nil
}

// GenerateQuestion строит один вопрос заданного типа
func (g *Generator) GenerateQuestion(word entity.Word, qType entity.QuestionType, corpus []entity.Word) (entity.QuizQuestion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buildQuestion(word, qType, corpus)
}

func (g *Generator) buildQuestion(word entity.Word, qType entity.QuestionType, corpus []entity.Word) (entity.QuizQuestion, error) {
	id, err := gonanoid.New()
	if err != nil {
		return entity.QuizQuestion{}, fmt.Errorf("generate question id: %w", err)
	}

	qType = effectiveType(word, qType)
	n := g.config.DistractorCount
	q := entity.QuizQuestion{
		ID:            id,
		WordID:        word.ID(),
		Type:          qType,
		CorrectAnswer: word.Word,
	}

	var distractors []entity.Word
	switch qType {
	case entity.QuestionSentenceCompletion:
		q.Question = fmt.Sprintf("Fill in the blank: %s", BlankWord(word.FirstExample(), word.Word))
		q.Explanation = fmt.Sprintf("The missing word is %q (%s).", word.Word, word.Meaning)
		distractors = g.selector.SelectSimilar(word, corpus, n, WordKey)
	case entity.QuestionPronunciation:
		q.Question = fmt.Sprintf("Which word is pronounced %s?", word.Pronunciation)
		q.Explanation = fmt.Sprintf("%s is pronounced %s.", word.Word, word.Pronunciation)
		distractors = g.selector.Select(word, corpus, n, WordKey)
	case entity.QuestionExampleMatching:
		q.Question = fmt.Sprintf("Which word is used in this sentence: %q?", word.FirstExample())
		q.Explanation = fmt.Sprintf("The sentence uses %q, which means %q.", word.Word, word.Meaning)
		distractors = g.selector.SelectSimilar(word, corpus, n, WordKey)
	default:
		q.Type = entity.QuestionMultipleChoice
		q.Question = fmt.Sprintf("What is the meaning of %q?", word.Word)
		q.CorrectAnswer = word.Meaning
		if word.HasExample() {
			q.Explanation = fmt.Sprintf("%q means %q. Example: %s", word.Word, word.Meaning, word.FirstExample())
		} else {
			q.Explanation = fmt.Sprintf("%q means %q.", word.Word, word.Meaning)
		}
		distractors = g.selector.Select(word, corpus, n, MeaningKey)
	}

	options := make([]string, 0, len(distractors)+1)
	options = append(options, q.CorrectAnswer)
	for _, d := range distractors {
		if q.Type == entity.QuestionMultipleChoice {
			options = append(options, d.Meaning)
		} else {
			options = append(options, d.Word)
		}
	}
	g.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	q.Options = options

	return q, nil
}

// effectiveType возвращает multiple-choice, если у слова нет данных для запрошенного типа
func effectiveType(word entity.Word, qType entity.QuestionType) entity.QuestionType {
	switch qType {
	case entity.QuestionSentenceCompletion:
		if !word.HasExample() || BlankWord(word.FirstExample(), word.Word) == word.FirstExample() {
			return entity.QuestionMultipleChoice
		}
	case entity.QuestionExampleMatching:
		if !word.HasExample() {
			return entity.QuestionMultipleChoice
		}
	case entity.QuestionPronunciation:
		if !word.HasPronunciation() {
			return entity.QuestionMultipleChoice
		}
	case entity.QuestionMultipleChoice:
	default:
		return entity.QuestionMultipleChoice
	}
	return qType
}

// BlankWord заменяет все вхождения word в sentence без учёта регистра
func BlankWord(sentence, word string) string {
	if word == "" {
		return sentence
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
	return re.ReplaceAllString(sentence, BlankPlaceholder)
}
