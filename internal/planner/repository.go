package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredPlan is a persisted meal plan row.
type StoredPlan struct {
	ID        int64
	StartDate string
	Status    Status
	Objective float64
	PlanData  []byte
	CreatedAt time.Time
}

// PlanRepository is a database-backed repository for generated meal plans.
type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Save inserts a solved plan and returns its row id.
func (r *PlanRepository) Save(ctx context.Context, res *Result) (int64, error) {
	if res.Plan == nil {
		return 0, fmt.Errorf("cannot save a result without a plan (status %s)", res.Status)
	}
	data, err := json.Marshal(res.Plan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal plan: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (start_date, status, objective, plan_data, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		res.Plan.StartDate, string(res.Status), res.Objective, data, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted plan id: %w", err)
	}
	return id, nil
}

// ListRecent retrieves the N most recent stored plans, newest first.
func (r *PlanRepository) ListRecent(ctx context.Context, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, start_date, status, objective, plan_data, created_at
		 FROM meal_plans ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		var p StoredPlan
		var status string
		if err := rows.Scan(&p.ID, &p.StartDate, &status, &p.Objective, &p.PlanData, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan row: %w", err)
		}
		p.Status = Status(status)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Get loads one stored plan by id and decodes its plan payload.
func (r *PlanRepository) Get(ctx context.Context, id int64) (*StoredPlan, *MealPlan, error) {
	var p StoredPlan
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, start_date, status, objective, plan_data, created_at
		 FROM meal_plans WHERE id = ?`, id,
	).Scan(&p.ID, &p.StartDate, &status, &p.Objective, &p.PlanData, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("meal plan %d not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load meal plan %d: %w", id, err)
	}
	p.Status = Status(status)

	var plan MealPlan
	if err := json.Unmarshal(p.PlanData, &plan); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal plan %d: %w", id, err)
	}
	return &p, &plan, nil
}
