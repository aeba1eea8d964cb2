package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/repository"
	"github.com/examhall/examportal/internal/response"
	"github.com/examhall/examportal/internal/service"
	"github.com/examhall/examportal/internal/session"
	"github.com/examhall/examportal/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminExamHandler handles admin-side exam management and reporting.
type AdminExamHandler struct {
	examService    *service.ExamService
	resultsService *service.ResultsService
	authService    *service.AuthService
	studentRepo    *repository.StudentRepository
}

// NewAdminExamHandler creates a new AdminExamHandler.
func NewAdminExamHandler(
	examService *service.ExamService,
	resultsService *service.ResultsService,
	authService *service.AuthService,
	studentRepo *repository.StudentRepository,
) *AdminExamHandler {
	return &AdminExamHandler{
		examService:    examService,
		resultsService: resultsService,
		authService:    authService,
		studentRepo:    studentRepo,
	}
}

// ListExams godoc
// GET /api/v1/admin/exams
func (h *AdminExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListExams(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExam godoc
// GET /api/v1/admin/exams/:exam_id
// Returns the full exam definition, questions and answer keys included.
func (h *AdminExamHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), examID)
	if errors.Is(err, session.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/admin/exams
func (h *AdminExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.CreateExam(c.Request.Context(), &req)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
			map[string]string{"detail": err.Error()})
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:exam_id
// Schedule fields are frozen once the exam window has opened.
func (h *AdminExamHandler) UpdateExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpdateExam(c.Request.Context(), examID, &req)
	if errors.Is(err, session.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}
	if err != nil {
		response.FailWithFields(c, http.StatusConflict, response.ErrConflict,
			map[string]string{"detail": err.Error()})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:exam_id
func (h *AdminExamHandler) DeleteExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	err = h.examService.DeleteExam(c.Request.Context(), examID)
	if errors.Is(err, session.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/exams/:exam_id/questions
// Questions are immutable once the exam window has opened.
func (h *AdminExamHandler) ReplaceQuestions(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.ReplaceQuestions(c.Request.Context(), examID, &req)
	if errors.Is(err, session.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}
	if err != nil {
		response.FailWithFields(c, http.StatusConflict, response.ErrConflict,
			map[string]string{"detail": err.Error()})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// GetExamReport godoc
// GET /api/v1/admin/exams/:exam_id/results?page=1&per_page=50
// Returns paginated per-student results for an exam.
func (h *AdminExamHandler) GetExamReport(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	results, total, err := h.resultsService.ExamReport(c.Request.Context(), examID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (int(total) + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// RegisterStudent godoc
// POST /api/v1/admin/students
// Creates a student account.
func (h *AdminExamHandler) RegisterStudent(c *gin.Context) {
	var req model.RegisterStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	student := &model.Student{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.studentRepo.Create(c.Request.Context(), student); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}
