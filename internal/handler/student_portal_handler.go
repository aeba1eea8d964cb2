package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/examhall/examportal/internal/middleware"
	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/response"
	"github.com/examhall/examportal/internal/service"
	"github.com/examhall/examportal/internal/session"
	"github.com/examhall/examportal/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentPortalHandler handles student-facing endpoints: the lobby, exam
// taking, and results.
type StudentPortalHandler struct {
	registry       *session.Registry
	examService    *service.ExamService
	resultsService *service.ResultsService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	registry *session.Registry,
	examService *service.ExamService,
	resultsService *service.ResultsService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		registry:       registry,
		examService:    examService,
		resultsService: resultsService,
	}
}

// LobbyExam is one row of the student lobby: exam schedule metadata plus the
// student's own submission state, with no question content.
type LobbyExam struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	DurationMinutes int              `json:"duration_minutes"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	Status          model.ExamStatus `json:"status"`
	Submitted       bool             `json:"submitted"`
	Percentage      *int             `json:"percentage,omitempty"`
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns all exams with status derived from the current time, overlaid with
// the student's submissions.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListExams(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	history, err := h.resultsService.StudentHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	submitted := make(map[uuid.UUID]*model.Submission, len(history))
	for i := range history {
		submitted[history[i].ExamID] = &history[i]
	}

	now := time.Now()
	lobby := make([]LobbyExam, 0, len(exams))
	for i := range exams {
		e := &exams[i]
		row := LobbyExam{
			ID:              e.ID,
			Title:           e.Title,
			Description:     e.Description,
			DurationMinutes: e.DurationMinutes,
			StartTime:       e.StartTime,
			EndTime:         e.EndTime,
			Status:          e.StatusAt(now),
		}
		if sub, ok := submitted[e.ID]; ok {
			row.Submitted = true
			pct := sub.Percentage
			row.Percentage = &pct
		}
		lobby = append(lobby, row)
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// EnterExam godoc
// POST /api/v1/student/exams/:exam_id/enter
// Starts or resumes the student's session and returns the full exam-taking
// view. Idempotent: re-entering a live session returns the same session.
func (h *StudentPortalHandler) EnterExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctrl, err := h.registry.Enter(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": ctrl.View()})
}

// AnswerRequest is the payload for saving one answer.
type AnswerRequest struct {
	QID    uuid.UUID `json:"q_id" binding:"required"`
	Option *int      `json:"option" binding:"required"`
}

// SaveAnswer godoc
// PUT /api/v1/student/exams/:exam_id/answer
// Records one answer selection. Option -1 clears the selection.
func (h *StudentPortalHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl, ok := h.registry.Get(claims.UserID, examID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		return
	}

	if err := ctrl.SelectAnswer(c.Request.Context(), req.QID, *req.Option); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// PositionRequest is the payload for moving the current-question pointer.
type PositionRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SavePosition godoc
// PUT /api/v1/student/exams/:exam_id/position
// Moves the current-question pointer so a reload resumes at the same place.
func (h *StudentPortalHandler) SavePosition(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req PositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl, ok := h.registry.Get(claims.UserID, examID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		return
	}

	if err := ctrl.Navigate(c.Request.Context(), *req.Index); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Finalizes the attempt. If unanswered questions remain and the payload does
// not set confirm_incomplete, responds 409 CONFIRM_REQUIRED and changes
// nothing.
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl, ok := h.registry.Get(claims.UserID, examID)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
		return
	}

	sub, err := ctrl.Submit(c.Request.Context(), model.SubmitModeManual, req.ConfirmIncomplete)
	if err != nil {
		failSession(c, err)
		return
	}

	h.registry.Release(claims.UserID, examID)
	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the student's recorded submission for the exam.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sub, err := h.resultsService.StudentResult(c.Request.Context(), claims.UserID, examID)
	if errors.Is(err, session.ErrSubmissionNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNoSubmission)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// GetHistory godoc
// GET /api/v1/student/results
// Returns all of the student's submissions, newest first.
func (h *StudentPortalHandler) GetHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	history, err := h.resultsService.StudentHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": history})
}

// failSession maps session errors to HTTP status codes and typed error codes.
func failSession(c *gin.Context, err error) {
	var notAvail *session.NotAvailableError
	var confirm *session.ConfirmationRequiredError

	switch {
	case errors.Is(err, session.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.As(err, &notAvail):
		response.FailWithFields(c, http.StatusConflict, response.ErrExamNotAvailable,
			map[string]string{"status": string(notAvail.Status)})
	case errors.As(err, &confirm):
		response.FailWithFields(c, http.StatusConflict, response.ErrConfirmRequired,
			map[string]string{"unanswered": strconv.Itoa(confirm.Unanswered)})
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, session.ErrInvalidAnswer):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswer)
	case errors.Is(err, session.ErrInvalidPosition):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
	case errors.Is(err, session.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveSession)
	case errors.Is(err, session.ErrSubmissionFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmissionFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
