package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// ProgressKey returns the cache key for one student's progress on one exam.
// The "{studentID}|{examID}" layout keeps the pair a single scannable unit.
func (r *CacheKeyStruct) ProgressKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("progress:%d|%s", studentID, examID)
}

// ProgressStudentPattern matches every progress key belonging to a student.
func (r *CacheKeyStruct) ProgressStudentPattern(studentID int) string {
	return fmt.Sprintf("progress:%d|*", studentID)
}

// ProgressAllPattern matches every progress key in the store.
func (r *CacheKeyStruct) ProgressAllPattern() string {
	return "progress:*"
}

// ExamPayloadKey returns the cache key for an exam's full definition payload.
func (r *CacheKeyStruct) ExamPayloadKey(examID uuid.UUID) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

var CacheKey = NewCacheKeyStruct()
