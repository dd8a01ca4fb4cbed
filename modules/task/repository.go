package task

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/example/realtime-tasks/domain/task"
)

// Repository provides access to task storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new task. The database assigns the id and timestamps.
func (r *Repository) Create(task *domain.Task) error {
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindAll retrieves tasks ordered by creation time, newest first. An
// empty status returns all tasks; otherwise only matching tasks.
func (r *Repository) FindAll(status domain.Status) ([]domain.Task, error) {
	query := r.db.Order("created_at DESC, id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var tasks []domain.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	return tasks, nil
}

// FindByID retrieves a task by its id.
func (r *Repository) FindByID(id int64) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// UpdateStatus persists a new status and returns the refreshed record.
// GORM maintains updated_at on the write.
func (r *Repository) UpdateStatus(id int64, status domain.Status) (*domain.Task, error) {
	result := r.db.Model(&domain.Task{}).Where("id = ?", id).Update("status", status)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(id)
}

// Delete permanently removes a task by id.
func (r *Repository) Delete(id int64) error {
	result := r.db.Delete(&domain.Task{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
