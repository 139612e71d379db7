package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/domain/repository"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
	"github.com/yourusername/vocab-api/internal/service/quizengine"
	"github.com/yourusername/vocab-api/internal/websocket"
)

// Notifier доставляет события пользователю
type Notifier interface {
	SendEventToUser(userID string, eventType string, data interface{}) error
}

// QuizServiceConfig настройки сервиса викторин
type QuizServiceConfig struct {
	Engine         *quizengine.Config
	ResultCacheTTL time.Duration
}

// quizEntry активная викторина пользователя
type quizEntry struct {
	session *quizengine.Session

	mu        sync.Mutex
	result    *entity.QuizResult
	persisted bool
}

// QuizService ведёт викторины пользователей: одна активная викторина на пользователя
type QuizService struct {
	wordRepo     repository.WordRepository
	progressRepo repository.ProgressRepository
	resultRepo   repository.QuizResultRepository
	cacheRepo    repository.CacheRepository
	generator    *quizengine.Generator
	scheduler    *quizengine.TaskScheduler
	config       QuizServiceConfig
	notifier     Notifier
	now          func() time.Time

	sessions sync.Map // userID -> *quizEntry
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	ctx context.Context,
	wordRepo repository.WordRepository,
	progressRepo repository.ProgressRepository,
	resultRepo repository.QuizResultRepository,
	cacheRepo repository.CacheRepository,
	generator *quizengine.Generator,
	config QuizServiceConfig,
) *QuizService {
	if config.Engine == nil {
		config.Engine = quizengine.DefaultConfig()
	}
	return &QuizService{
		wordRepo:     wordRepo,
		progressRepo: progressRepo,
		resultRepo:   resultRepo,
		cacheRepo:    cacheRepo,
		generator:    generator,
		scheduler:    quizengine.NewTaskScheduler(ctx),
		config:       config,
		now:          time.Now,
	}
}

// SetNotifier устанавливает получателя событий автоперехода
func (s *QuizService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// StartQuiz генерирует и запускает викторину. Прежняя викторина пользователя закрывается.
func (s *QuizService) StartQuiz(userID string, settings entity.QuizSettings) (quizengine.State, error) {
	settings = s.applyDefaults(settings)
	if err := settings.Validate(); err != nil {
		return quizengine.State{}, err
	}

	pool, err := s.buildPool(userID, settings)
	if err != nil {
		return quizengine.State{}, err
	}

	quiz, err := s.generator.Generate(userID, pool, s.wordRepo.All(), settings)
	if err != nil {
		return quizengine.State{}, err
	}

	session := quizengine.NewSession(s.scheduler, s.config.Engine.AutoAdvanceDelay)
	session.OnChange(s.onSessionChange(userID))
	state, changed := session.Dispatch(quizengine.StartQuiz{Quiz: quiz, Settings: settings, StartedAt: s.now()})
	if !changed {
		session.Close()
		return quizengine.State{}, fmt.Errorf("%w: quiz could not be started", apperrors.ErrConflict)
	}

	if previous, loaded := s.sessions.Swap(userID, &quizEntry{session: session}); loaded {
		previous.(*quizEntry).session.Close()
		log.Printf("[QuizService] Предыдущая викторина пользователя %s закрыта", userID)
	}

	log.Printf("[QuizService] Пользователь %s начал викторину %s: %d вопросов, сложность %s",
		userID, quiz.ID, quiz.TotalQuestions, settings.Difficulty)
	return state, nil
}

// CurrentState возвращает состояние активной викторины
func (s *QuizService) CurrentState(userID string) (quizengine.State, error) {
	entry, err := s.entry(userID)
	if err != nil {
		return quizengine.State{}, err
	}
	return entry.session.State(), nil
}

// Answer отвечает на текущий вопрос. Повторный ответ ничего не меняет.
func (s *QuizService) Answer(userID, questionID, answer string, timeSpentMs int64) (quizengine.State, bool, error) {
	return s.dispatch(userID, quizengine.AnswerQuestion{QuestionID: questionID, Answer: answer, TimeSpentMs: timeSpentMs})
}

// Skip пропускает текущий вопрос
func (s *QuizService) Skip(userID, questionID string) (quizengine.State, bool, error) {
	return s.dispatch(userID, quizengine.SkipQuestion{QuestionID: questionID})
}

// Next переходит к следующему вопросу
func (s *QuizService) Next(userID string) (quizengine.State, bool, error) {
	return s.dispatch(userID, quizengine.NextQuestion{})
}

// Previous переходит к предыдущему вопросу
func (s *QuizService) Previous(userID string) (quizengine.State, bool, error) {
	return s.dispatch(userID, quizengine.PreviousQuestion{})
}

// EndQuiz завершает викторину и сохраняет результат. Повторный вызов возвращает тот же результат;
// если сохранение ранее не удалось, оно повторяется.
func (s *QuizService) EndQuiz(userID string) (*entity.QuizResult, error) {
	entry, err := s.entry(userID)
	if err != nil {
		return nil, err
	}

	state, _ := entry.session.Dispatch(quizengine.EndQuiz{CompletedAt: s.now()})
	if state.Status() != entity.QuizStatusCompleted {
		return nil, apperrors.ErrNoActiveQuiz
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.result == nil {
		entry.result = quizengine.Analyze(state.Quiz, s.wordRepo.All())
	}
	if !entry.persisted {
		if err := s.persist(state.Quiz, entry.result); err != nil {
			return entry.result, err
		}
		entry.persisted = true
	}
	return entry.result, nil
}

// ResetQuiz сбрасывает и закрывает активную викторину
func (s *QuizService) ResetQuiz(userID string) error {
	value, ok := s.sessions.LoadAndDelete(userID)
	if !ok {
		return apperrors.ErrNoActiveQuiz
	}
	entry := value.(*quizEntry)
	entry.session.Dispatch(quizengine.ResetQuiz{})
	entry.session.Close()
	log.Printf("[QuizService] Викторина пользователя %s сброшена", userID)
	return nil
}

// ActiveResult возвращает результат завершённой, но ещё открытой викторины пользователя
func (s *QuizService) ActiveResult(userID, quizID string) (*entity.QuizResult, bool) {
	entry, err := s.entry(userID)
	if err != nil {
		return nil, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.result == nil || entry.result.QuizID != quizID {
		return nil, false
	}
	return entry.result, true
}

// Words возвращает словарь, при необходимости отфильтрованный по уровню
func (s *QuizService) Words(level string) ([]entity.Word, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = entity.DifficultyMixed
	}
	if !entity.IsValidDifficulty(level) {
		return nil, fmt.Errorf("%w: unknown level %q", apperrors.ErrValidation, level)
	}
	return quizengine.FilterByDifficulty(s.wordRepo.All(), level), nil
}

// Progress возвращает прогресс пользователя по словам
func (s *QuizService) Progress(userID string) ([]entity.UserProgress, error) {
	return s.progressRepo.ListByUser(userID)
}

// SetLearned отмечает слово выученным или снимает отметку
func (s *QuizService) SetLearned(userID, word string, learned bool) error {
	w, err := s.wordRepo.GetByWord(word)
	if err != nil {
		return err
	}
	return s.progressRepo.SetLearned(userID, w.ID(), learned)
}

// Shutdown закрывает все активные викторины и останавливает планировщик
func (s *QuizService) Shutdown() {
	s.sessions.Range(func(key, value interface{}) bool {
		value.(*quizEntry).session.Close()
		s.sessions.Delete(key)
		return true
	})
	s.scheduler.Stop()
	log.Printf("[QuizService] Сервис викторин остановлен")
}

func (s *QuizService) entry(userID string) (*quizEntry, error) {
	value, ok := s.sessions.Load(userID)
	if !ok {
		return nil, apperrors.ErrNoActiveQuiz
	}
	return value.(*quizEntry), nil
}

func (s *QuizService) dispatch(userID string, action quizengine.Action) (quizengine.State, bool, error) {
	entry, err := s.entry(userID)
	if err != nil {
		return quizengine.State{}, false, err
	}
	state, changed := entry.session.Dispatch(action)
	return state, changed, nil
}

func (s *QuizService) applyDefaults(settings entity.QuizSettings) entity.QuizSettings {
	if settings.QuestionCount == 0 {
		settings.QuestionCount = s.config.Engine.DefaultQuestionCount
	}
	if settings.Difficulty == "" {
		settings.Difficulty = entity.DifficultyMixed
	}
	if len(settings.QuestionTypes) == 0 {
		settings.QuestionTypes = []entity.QuestionType{entity.QuestionMultipleChoice}
	}
	if settings.WordPool == "" {
		settings.WordPool = entity.WordPoolAll
	}
	return settings
}

// buildPool выбирает слова для вопросов. Пустой выученный пул откатывается к словам уровня,
// пустой пул уровня к демо-пулу (всему словарю).
func (s *QuizService) buildPool(userID string, settings entity.QuizSettings) ([]entity.Word, error) {
	corpus := s.wordRepo.All()
	pool := quizengine.FilterByDifficulty(corpus, settings.Difficulty)

	if settings.WordPool == entity.WordPoolLearned {
		learned, err := s.progressRepo.GetLearnedWords(userID)
		if err != nil {
			log.Printf("[QuizService] Не удалось получить выученные слова пользователя %s: %v", userID, err)
		}
		if learnedPool := quizengine.FilterLearned(pool, learned); len(learnedPool) > 0 {
			pool = learnedPool
		} else {
			log.Printf("[QuizService] У пользователя %s нет выученных слов уровня %s, используем все слова", userID, settings.Difficulty)
		}
	}

	if len(pool) == 0 {
		log.Printf("[QuizService] Нет слов уровня %s, используем демо-пул", settings.Difficulty)
		pool = corpus
	}
	if len(pool) == 0 {
		return nil, apperrors.ErrNoWordsAvailable
	}
	return pool, nil
}

// persist сохраняет результат и прогресс. Снимок в кеше не обязателен для успеха.
func (s *QuizService) persist(quiz *entity.Quiz, result *entity.QuizResult) error {
	if err := s.resultRepo.Save(entity.NewQuizResultRecord(result)); err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}

	var learned, reviewed []string
	for _, q := range quiz.Questions {
		if q.IsCorrect == nil {
			continue
		}
		if *q.IsCorrect {
			learned = append(learned, q.WordID)
		} else {
			reviewed = append(reviewed, q.WordID)
		}
	}
	at := s.now()
	if result.CompletedAt != nil {
		at = *result.CompletedAt
	}

	var errs *multierror.Error
	if err := s.progressRepo.MarkLearned(quiz.UserID, learned, at); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("mark learned: %w", err))
	}
	if err := s.progressRepo.TouchReviewed(quiz.UserID, reviewed, at); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("touch reviewed: %w", err))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	if err := s.cacheRepo.SetJSON(resultCacheKey(quiz.ID), result, s.config.ResultCacheTTL); err != nil {
		log.Printf("[QuizService] Не удалось сохранить снимок результата %s в кеш: %v", quiz.ID, err)
	}
	log.Printf("[QuizService] Результат викторины %s сохранён: %d/%d", quiz.ID, result.CorrectAnswers, result.TotalQuestions)
	return nil
}

func (s *QuizService) onSessionChange(userID string) quizengine.Listener {
	return func(state quizengine.State, action quizengine.Action) {
		next, ok := action.(quizengine.NextQuestion)
		if !ok || !next.Auto || s.notifier == nil {
			return
		}
		if err := s.notifier.SendEventToUser(userID, websocket.EventQuizAutoAdvance, state.Public()); err != nil {
			log.Printf("[QuizService] Не удалось отправить автопереход пользователю %s: %v", userID, err)
		}
	}
}
