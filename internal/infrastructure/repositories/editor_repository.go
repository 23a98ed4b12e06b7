package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/mediahub/domain"
)

// EditorRepositoryImpl implements domain.EditorRepository using GORM
type EditorRepositoryImpl struct {
	db *gorm.DB
}

// DBEditor is the database model for an editor organization
type DBEditor struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255"`
	Image     string `gorm:"size:512"`
	IsActive  bool   `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (DBEditor) TableName() string {
	return "editors"
}

// NewEditorRepository creates a new editor repository
func NewEditorRepository(db *gorm.DB) domain.EditorRepository {
	return &EditorRepositoryImpl{db: db}
}

// FindByID implements domain.EditorRepository
func (r *EditorRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Editor, error) {
	var e DBEditor
	if err := conn(ctx, r.db).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEditorNotFound
		}
		return nil, err
	}
	return &domain.Editor{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Image:     e.Image,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}
