package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/haperez86/EduPay/internal/models"
)

// BranchRepository manages school branches.
type BranchRepository struct {
	db *sqlx.DB
}

// NewBranchRepository constructs the repository.
func NewBranchRepository(db *sqlx.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

const branchColumns = `id, code, name, address, phone, email, is_main, active, created_at, updated_at`

// ListActive returns active branches with the main branch first.
func (r *BranchRepository) ListActive(ctx context.Context) ([]models.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE active = TRUE ORDER BY is_main DESC, name ASC`
	var branches []models.Branch
	if err := r.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// FindByID returns a branch by its ID.
func (r *BranchRepository) FindByID(ctx context.Context, id string) (*models.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE id = $1`
	var branch models.Branch
	if err := r.db.GetContext(ctx, &branch, query, id); err != nil {
		return nil, err
	}
	return &branch, nil
}

// ExistsByCode reports whether another branch already uses code.
func (r *BranchRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := `SELECT 1 FROM branches WHERE code = $1`
	args := []interface{}{code}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check branch code: %w", err)
	}
	return true, nil
}

// ExistsActiveMain reports whether an active main branch other than excludeID exists.
func (r *BranchRepository) ExistsActiveMain(ctx context.Context, excludeID string) (bool, error) {
	query := `SELECT 1 FROM branches WHERE is_main = TRUE AND active = TRUE`
	var args []interface{}
	if excludeID != "" {
		query += " AND id <> $1"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check main branch: %w", err)
	}
	return true, nil
}

// Create persists a new branch.
func (r *BranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	branch.CreatedAt = now
	branch.UpdatedAt = now
	query := `INSERT INTO branches (` + branchColumns + `)
VALUES (:id, :code, :name, :address, :phone, :email, :is_main, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// Update overwrites mutable branch attributes.
func (r *BranchRepository) Update(ctx context.Context, branch *models.Branch) error {
	branch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE branches SET code = :code, name = :name, address = :address, phone = :phone, email = :email,
is_main = :is_main, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	return nil
}

// Deactivate soft deletes a branch.
func (r *BranchRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE branches SET active = FALSE, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("deactivate branch: %w", err)
	}
	return nil
}
