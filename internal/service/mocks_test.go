package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/vocab-api/internal/domain/entity"
)

// ============================================================================
// Моки репозиториев, общие для тестов сервисов
// ============================================================================

// MockProgressRepo реализует repository.ProgressRepository
type MockProgressRepo struct {
	mock.Mock
}

func (m *MockProgressRepo) MarkLearned(userID string, words []string, at time.Time) error {
	args := m.Called(userID, words, at)
	return args.Error(0)
}

func (m *MockProgressRepo) TouchReviewed(userID string, words []string, at time.Time) error {
	args := m.Called(userID, words, at)
	return args.Error(0)
}

func (m *MockProgressRepo) SetLearned(userID string, word string, learned bool) error {
	args := m.Called(userID, word, learned)
	return args.Error(0)
}

func (m *MockProgressRepo) GetLearnedWords(userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProgressRepo) ListByUser(userID string) ([]entity.UserProgress, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserProgress), args.Error(1)
}

// MockQuizResultRepo реализует repository.QuizResultRepository
type MockQuizResultRepo struct {
	mock.Mock
}

func (m *MockQuizResultRepo) Save(record *entity.QuizResultRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockQuizResultRepo) ListByUser(userID string, limit, offset int) ([]entity.QuizResultRecord, int64, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.QuizResultRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizResultRepo) ListAllByUser(userID string) ([]entity.QuizResultRecord, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizResultRecord), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

// sentEvent событие, отправленное пользователю через фейковый транспорт
type sentEvent struct {
	UserID string
	Type   string
	Data   interface{}
}

// recordingNotifier запоминает отправленные события
type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *recordingNotifier) SendEventToUser(userID string, eventType string, data interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Type: eventType, Data: data})
	return n.err
}

func (n *recordingNotifier) snapshot() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}

func (n *recordingNotifier) ofType(eventType string) []sentEvent {
	var result []sentEvent
	for _, e := range n.snapshot() {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func testWord(w, meaning string, level entity.CEFRLevel, typ string) entity.Word {
	return entity.Word{
		Word:          w,
		Meaning:       meaning,
		Level:         level,
		Type:          typ,
		Pronunciation: "/" + w + "/",
		Examples:      []entity.Example{{EN: "Here the word " + w + " is used."}},
	}
}

// testWords словарь на двенадцать слов трёх уровней
func testWords() []entity.Word {
	return []entity.Word{
		testWord("apple", "a red fruit", entity.LevelA1, "n."),
		testWord("house", "a building to live in", entity.LevelA1, "n."),
		testWord("water", "a clear liquid", entity.LevelA1, "n."),
		testWord("table", "furniture with legs", entity.LevelA1, "n."),
		testWord("run", "to move fast", entity.LevelA1, "v."),
		testWord("eat", "to consume food", entity.LevelA1, "v."),
		testWord("journey", "a trip", entity.LevelA2, "n."),
		testWord("ticket", "a travel pass", entity.LevelA2, "n."),
		testWord("borrow", "to take for a while", entity.LevelA2, "v."),
		testWord("achieve", "to succeed", entity.LevelB1, "v."),
		testWord("opinion", "what you think", entity.LevelB1, "n."),
		testWord("honest", "telling the truth", entity.LevelB1, "adj."),
	}
}
