package main

import (
	"context"
	"fmt"
	"time"

	"github.com/examhall/examportal/internal/config"
	"github.com/examhall/examportal/internal/database"
	"github.com/examhall/examportal/internal/logger"
	"github.com/examhall/examportal/internal/model"
	"github.com/examhall/examportal/internal/repository"
	"github.com/examhall/examportal/internal/service"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	examService := service.NewExamService(examRepo, rdb, log)

	fmt.Println("=== Seeding Demo Students and Exams ===")

	// ─── Students ──────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	names := []string{
		"Alice Johnson", "Bob Martinez", "Carol Chen", "David Okafor",
		"Emma Williams", "Farid Hassan", "Grace Park", "Hugo Silva",
		"Iris Novak", "Jamal Wright",
	}

	created := 0
	for i, name := range names {
		student := &model.Student{
			Name:         name,
			Email:        fmt.Sprintf("student%d@example.com", i+1),
			PasswordHash: string(hash),
		}
		if err := studentRepo.Create(ctx, student); err != nil {
			fmt.Printf("Error creating student %s: %v\n", name, err)
			continue
		}
		created++
	}
	fmt.Printf("Created %d/%d students (password: password123)\n", created, len(names))

	// ─── Exams ─────────────────────────────────────────────────────────
	now := time.Now()
	exams := []model.CreateExamRequest{
		{
			Title:           "General Knowledge Quiz",
			Description:     "A short quiz covering geography, science, and history.",
			DurationMinutes: 30,
			StartTime:       now.Add(-time.Hour),
			EndTime:         now.Add(24 * time.Hour),
			Questions: []model.CreateQuestionRequest{
				{
					Text:          "What is the capital of France?",
					Options:       []string{"Berlin", "Madrid", "Paris", "Rome"},
					CorrectOption: 2,
					Marks:         5,
				},
				{
					Text:          "Which planet is known as the Red Planet?",
					Options:       []string{"Venus", "Mars", "Jupiter", "Saturn"},
					CorrectOption: 1,
					Marks:         5,
				},
				{
					Text:          "In which year did the Second World War end?",
					Options:       []string{"1943", "1944", "1945", "1946"},
					CorrectOption: 2,
					Marks:         5,
				},
			},
		},
		{
			Title:           "Mathematics Midterm",
			Description:     "Algebra and arithmetic fundamentals.",
			DurationMinutes: 60,
			StartTime:       now.Add(48 * time.Hour),
			EndTime:         now.Add(72 * time.Hour),
			Questions: []model.CreateQuestionRequest{
				{
					Text:          "What is 12 × 8?",
					Options:       []string{"88", "92", "96", "104"},
					CorrectOption: 2,
					Marks:         10,
				},
				{
					Text:          "Solve for x: 2x + 6 = 14",
					Options:       []string{"2", "4", "6", "8"},
					CorrectOption: 1,
					Marks:         10,
				},
			},
		},
	}

	for i := range exams {
		exam, err := examService.CreateExam(ctx, &exams[i])
		if err != nil {
			fmt.Printf("Error creating exam %q: %v\n", exams[i].Title, err)
			continue
		}
		fmt.Printf("Created exam %q with ID: %s\n", exam.Title, exam.ID)
	}

	fmt.Println("\nSeed completed!")
}
