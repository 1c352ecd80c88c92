package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/database"
	"github.com/examportal/portal-backend/internal/logger"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
)

func main() {
	var departmentName string
	var perType int
	flag.StringVar(&departmentName, "department", "Sample Department", "Department the seeded questions belong to")
	flag.IntVar(&perType, "per-type", 10, "Minimum number of questions per type")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg, "seed-questions")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	departmentRepo := repository.NewDepartmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Printf("=== Seeding questions (%d per type) ===\n", perType)

	departmentID, err := findOrCreateDepartment(ctx, departmentRepo, departmentName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare department")
	}

	counts, err := questionRepo.CountByType(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count questions")
	}

	created := 0
	for _, t := range model.QuestionTypes {
		missing := perType - counts[t]
		if missing <= 0 {
			fmt.Printf("%-20s already has %d questions\n", t.Name(), counts[t])
			continue
		}
		for i := 0; i < missing; i++ {
			q := sampleQuestion(departmentID, t, counts[t]+i+1)
			if err := questionRepo.Create(ctx, q); err != nil {
				fmt.Printf("Error creating %s question: %v\n", t.Name(), err)
				continue
			}
			created++
		}
		fmt.Printf("%-20s topped up by %d\n", t.Name(), missing)
	}

	fmt.Printf("\nSeed completed! Added %d questions to department %d.\n", created, departmentID)
}

func findOrCreateDepartment(ctx context.Context, repo *repository.DepartmentRepository, name string) (int64, error) {
	departments, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, d := range departments {
		if strings.EqualFold(d.Name, name) {
			fmt.Printf("Found existing department with ID: %d\n", d.ID)
			return d.ID, nil
		}
	}

	d := &model.Department{Name: name, Description: "Seeded practice questions"}
	if err := repo.Create(ctx, d); err != nil {
		return 0, err
	}
	fmt.Printf("Created department with ID: %d\n", d.ID)
	return d.ID, nil
}

// sampleQuestion builds a placeholder question whose first answer is correct.
func sampleQuestion(departmentID int64, t model.QuestionType, n int) *model.Question {
	q := &model.Question{
		DepartmentID: departmentID,
		QuestionType: t,
		Content:      fmt.Sprintf("%s sample question #%d", t.Name(), n),
	}

	switch t {
	case model.QuestionTypeTrueFalse:
		q.Answers = []model.Answer{
			{Text: "True", IsCorrect: true},
			{Text: "False"},
		}
	case model.QuestionTypeFillBlank:
		q.Content = fmt.Sprintf("Sample sentence #%d with a ____ to fill.", n)
		q.Answers = []model.Answer{
			{Text: "blank", IsCorrect: true},
			{Text: "gap"},
			{Text: "space"},
		}
	default:
		q.Answers = make([]model.Answer, 4)
		for i := range q.Answers {
			q.Answers[i] = model.Answer{Text: fmt.Sprintf("Option %c", 'A'+i), IsCorrect: i == 0}
		}
	}
	return q
}
