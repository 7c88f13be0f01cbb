package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorhub-api/internal/models"
)

// SubjectRepository handles subjects and their topics.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByClass returns subjects of a class.
func (r *SubjectRepository) ListByClass(ctx context.Context, classID string) ([]models.Subject, error) {
	var subjects []models.Subject
	const query = `SELECT id, class_id, name, created_at FROM subjects WHERE class_id = $1 ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, `SELECT id, class_id, name, created_at FROM subjects WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO subjects (id, class_id, name, created_at) VALUES (:id, :class_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// ListTopics returns topics of a subject in curriculum order.
func (r *SubjectRepository) ListTopics(ctx context.Context, subjectID string) ([]models.Topic, error) {
	var topics []models.Topic
	const query = `SELECT id, subject_id, name, position, created_at FROM topics WHERE subject_id = $1 ORDER BY position ASC, created_at ASC`
	if err := r.db.SelectContext(ctx, &topics, query, subjectID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// FindTopic fetches a topic.
func (r *SubjectRepository) FindTopic(ctx context.Context, id string) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, `SELECT id, subject_id, name, position, created_at FROM topics WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find topic: %w", err)
	}
	return &topic, nil
}

// CreateTopic inserts a topic. A zero position appends it after the existing topics.
func (r *SubjectRepository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	topic.CreatedAt = time.Now().UTC()
	if topic.Position <= 0 {
		const next = `SELECT COALESCE(MAX(position), 0) + 1 FROM topics WHERE subject_id = $1`
		if err := r.db.GetContext(ctx, &topic.Position, next, topic.SubjectID); err != nil {
			return fmt.Errorf("next topic position: %w", err)
		}
	}
	const query = `INSERT INTO topics (id, subject_id, name, position, created_at) VALUES (:id, :subject_id, :name, :position, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}
