package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/handler/dto"
	"github.com/yourusername/vocab-api/internal/service"
)

var exportHeaders = []string{"Дата", "Сложность", "Вопросов", "Правильных", "Неправильных", "Пропущено", "Успешность, %", "Время, сек", "Рекомендации"}

// ResultHandler обрабатывает историю результатов
type ResultHandler struct {
	resultService *service.ResultService
}

// NewResultHandler создает новый обработчик результатов
func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// ListResults возвращает историю результатов пользователя с пагинацией
// GET /api/results?page=1&page_size=10
func (h *ResultHandler) ListResults(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 {
		pageSize = 10 // Значение по умолчанию
	} else if pageSize > 100 {
		pageSize = 100 // Максимальный лимит
	}

	records, total, err := h.resultService.GetUserResults(userID, page, pageSize)
	if err != nil {
		handleError(c, "ResultHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedResultResponse(records, total, page, pageSize))
}

// ExportResults экспортирует историю результатов в Excel или CSV
// GET /api/results/export?format=xlsx|csv
func (h *ResultHandler) ExportResults(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "xlsx")

	// Получаем ВСЕ результаты без пагинации для экспорта
	records, err := h.resultService.GetAllUserResults(userID)
	if err != nil {
		handleError(c, "ResultHandler", err)
		return
	}

	filename := fmt.Sprintf("vocab_results_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "csv":
		h.exportCSV(c, records, filename)
	default:
		h.exportXLSX(c, records, filename)
	}
}

// exportCSV экспортирует результаты в CSV с правильным экранированием спецсимволов
func (h *ResultHandler) exportCSV(c *gin.Context, records []entity.QuizResultRecord, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, r := range records {
		writer.Write([]string{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Difficulty,
			strconv.Itoa(r.TotalQuestions),
			strconv.Itoa(r.CorrectAnswers),
			strconv.Itoa(r.WrongAnswers),
			strconv.Itoa(r.SkippedQuestions),
			strconv.Itoa(r.SuccessRate),
			strconv.Itoa(r.TimeSpent),
			sanitizeForExcel(strings.Join(r.Recommendations, "; ")),
		})
	}
}

// exportXLSX экспортирует результаты в Excel с использованием StreamWriter
func (h *ResultHandler) exportXLSX(c *gin.Context, records []entity.QuizResultRecord, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[ResultHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[ResultHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range records {
		rowNum := i + 2 // 1 - заголовки
		row := []interface{}{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Difficulty,
			r.TotalQuestions,
			r.CorrectAnswers,
			r.WrongAnswers,
			r.SkippedQuestions,
			r.SuccessRate,
			r.TimeSpent,
			sanitizeForExcel(strings.Join(r.Recommendations, "; ")),
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[ResultHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[ResultHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ResultHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
