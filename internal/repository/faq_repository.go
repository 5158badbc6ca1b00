package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpme/helpdesk/internal/domain"
)

// FAQRepository manages knowledge-base entries.
type FAQRepository interface {
	Create(ctx context.Context, faq *domain.FAQ) error
	GetByID(ctx context.Context, id string) (*domain.FAQ, error)
	List(ctx context.Context, category *string) ([]domain.FAQ, error)
}

type faqRepository struct {
	pool *pgxpool.Pool
}

// NewFAQRepository constructs repository.
func NewFAQRepository(pool *pgxpool.Pool) FAQRepository {
	return &faqRepository{pool: pool}
}

func (r *faqRepository) Create(ctx context.Context, faq *domain.FAQ) error {
	const query = `
        INSERT INTO faqs (question, answer, category, creator_user_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		faq.Question,
		faq.Answer,
		faq.Category,
		faq.CreatorID,
	).Scan(&faq.ID, &faq.CreatedAt)
}

func (r *faqRepository) GetByID(ctx context.Context, id string) (*domain.FAQ, error) {
	const query = `
        SELECT id, question, answer, category, creator_user_id, created_at
        FROM faqs WHERE id=$1`
	var faq domain.FAQ
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&faq.ID,
		&faq.Question,
		&faq.Answer,
		&faq.Category,
		&faq.CreatorID,
		&faq.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &faq, nil
}

func (r *faqRepository) List(ctx context.Context, category *string) ([]domain.FAQ, error) {
	query := `
        SELECT id, question, answer, category, creator_user_id, created_at
        FROM faqs`
	args := []any{}
	if category != nil {
		args = append(args, *category)
		query += ` WHERE category=$1`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FAQ
	for rows.Next() {
		var faq domain.FAQ
		if err := rows.Scan(
			&faq.ID,
			&faq.Question,
			&faq.Answer,
			&faq.Category,
			&faq.CreatorID,
			&faq.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, faq)
	}
	return result, rows.Err()
}
