package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/haperez86/EduPay/internal/models"
)

// StudentRepository manages persistence for students billed by the ledger.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// StudentListParams filters student listings. A nil BranchID lists every branch.
type StudentListParams struct {
	BranchID *string
	Active   *bool
	Document string
	Name     string
	Page     int
	PageSize int
}

const studentColumns = `id, branch_id, first_name, last_name, document_number, phone, email, active, created_at, updated_at`

const studentDetailSelect = `SELECT s.id, s.branch_id, s.first_name, s.last_name, s.document_number, s.phone, s.email,
        s.active, s.created_at, s.updated_at, b.name AS branch_name
FROM students s
LEFT JOIN branches b ON b.id = s.branch_id`

// List returns students matching the filters ordered by last and first name.
func (r *StudentRepository) List(ctx context.Context, params StudentListParams) ([]models.StudentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if params.BranchID != nil {
		conditions = append(conditions, fmt.Sprintf("s.branch_id = $%d", len(args)+1))
		args = append(args, *params.BranchID)
	}
	if params.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *params.Active)
	}
	if params.Document != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.document_number) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(params.Document)+"%")
	}
	if params.Name != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(params.Name)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY s.last_name, s.first_name LIMIT %d OFFSET %d", studentDetailSelect, clause, size, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM students s" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Directory returns active students for lookup screens, optionally narrowed by branch or document.
func (r *StudentRepository) Directory(ctx context.Context, branchID *string, document string) ([]models.StudentDirectoryEntry, error) {
	query := `SELECT s.id, s.document_number, s.first_name, s.last_name, s.branch_id, b.name AS branch_name
FROM students s
LEFT JOIN branches b ON b.id = s.branch_id
WHERE s.active = TRUE`
	var args []interface{}
	if branchID != nil {
		args = append(args, *branchID)
		query += fmt.Sprintf(" AND s.branch_id = $%d", len(args))
	}
	if document != "" {
		args = append(args, "%"+strings.ToLower(document)+"%")
		query += fmt.Sprintf(" AND LOWER(s.document_number) LIKE $%d", len(args))
	}
	query += " ORDER BY s.last_name, s.first_name LIMIT 200"

	var entries []models.StudentDirectoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("student directory: %w", err)
	}
	return entries, nil
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID returns a student with its branch name.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := studentDetailSelect + " WHERE s.id = $1"
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByDocument reports whether another student already uses the document number.
func (r *StudentRepository) ExistsByDocument(ctx context.Context, document, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE document_number = $1"
	args := []interface{}{document}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check document number: %w", err)
	}
	return true, nil
}

// HasEnrollments reports whether any enrollment references the student.
func (r *StudentRepository) HasEnrollments(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM enrollments WHERE student_id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student enrollments: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	query := `INSERT INTO students (` + studentColumns + `)
VALUES (:id, :branch_id, :first_name, :last_name, :document_number, :phone, :email, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the mutable student attributes.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET branch_id = :branch_id, first_name = :first_name, last_name = :last_name,
document_number = :document_number, phone = :phone, email = :email, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetActive flips the active flag to the given value.
func (r *StudentRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE students SET active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set student active: %w", err)
	}
	return nil
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
