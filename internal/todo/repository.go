package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskify/taskify-api/internal/domain"
)

// Repository persists todos.
type Repository interface {
	Create(ctx context.Context, t Todo) error
	FindByID(ctx context.Context, id string) (Todo, error)
	List(ctx context.Context, q Query) ([]Todo, int, error)
	Update(ctx context.Context, t Todo) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ownerID string, ids []string) (int, error)
}

// sortColumns whitelists the sortable fields; anything else falls back to
// created_at.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"status":     "status",
	"title":      "title",
}

const todoColumns = `id, owner_id, title, description, status, priority, due_date, tags, created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed todo repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t Todo) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("parse todo id: %w", err)
	}
	ownerID, err := uuid.Parse(t.OwnerID)
	if err != nil {
		return fmt.Errorf("parse owner id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO todos (id, owner_id, title, description, status, priority, due_date, tags, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		id, ownerID, t.Title, t.Description, t.Status, t.Priority, t.DueDate.UTC(), t.Tags, t.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Todo, error) {
	todoID, err := uuid.Parse(id)
	if err != nil {
		return Todo{}, domain.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, todoID)
	return scanTodo(row)
}

// List applies the resolved query and returns the matching page plus the
// total match count.
func (r *PostgresRepository) List(ctx context.Context, q Query) ([]Todo, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.OwnerID != "" {
		ownerID, err := uuid.Parse(q.OwnerID)
		if err != nil {
			return nil, 0, domain.ErrNotFound
		}
		conds = append(conds, "owner_id = "+arg(ownerID))
	}
	if q.Status != "" {
		conds = append(conds, "status = "+arg(q.Status))
	}
	if q.Priority != "" {
		conds = append(conds, "priority = "+arg(q.Priority))
	}
	if q.Tag != "" {
		conds = append(conds, arg(q.Tag)+" = ANY(tags)")
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		conds = append(conds, "(title ILIKE "+arg(pattern)+" OR description ILIKE "+arg(pattern)+")")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	column, ok := sortColumns[q.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		direction = "ASC"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM todos`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM todos%s ORDER BY %s %s LIMIT %s OFFSET %s`,
		todoColumns, where, column, direction, arg(q.Limit), arg((q.Page-1)*q.Limit))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, 0, err
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return todos, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t Todo) error {
	todoID, err := uuid.Parse(t.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE todos SET title = $2, description = $3, status = $4, priority = $5, due_date = $6, tags = $7, updated_at = now()
        WHERE id = $1`,
		todoID, t.Title, t.Description, t.Status, t.Priority, t.DueDate.UTC(), t.Tags)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	todoID, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, todoID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteMany removes the given ids scoped to one owner and reports how many
// rows actually went away.
func (r *PostgresRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) (int, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return 0, domain.ErrNotFound
	}
	todoIDs := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		todoID, err := uuid.Parse(id)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q: %w", id, domain.ErrBadRequest)
		}
		todoIDs = append(todoIDs, todoID)
	}

	cmd, err := r.db.Exec(ctx, `DELETE FROM todos WHERE owner_id = $1 AND id = ANY($2)`, owner, todoIDs)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func scanTodo(row pgx.Row) (Todo, error) {
	var (
		id        uuid.UUID
		ownerID   uuid.UUID
		t         Todo
		dueDate   time.Time
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &ownerID, &t.Title, &t.Description, &t.Status, &t.Priority, &dueDate, &t.Tags, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Todo{}, domain.ErrNotFound
		}
		return Todo{}, err
	}
	t.ID = id.String()
	t.OwnerID = ownerID.String()
	t.DueDate = dueDate.UTC()
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}
