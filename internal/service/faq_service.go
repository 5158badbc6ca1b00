package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helpme/helpdesk/internal/domain"
	"github.com/helpme/helpdesk/internal/repository"
	apperrors "github.com/helpme/helpdesk/pkg/util"
)

// FAQService serves the knowledge base.
type FAQService struct {
	faqs repository.FAQRepository
}

// NewFAQService constructs the service.
func NewFAQService(faqs repository.FAQRepository) *FAQService {
	return &FAQService{faqs: faqs}
}

// List returns entries, optionally filtered by category.
func (s *FAQService) List(ctx context.Context, category *string) ([]domain.FAQ, error) {
	return s.faqs.List(ctx, category)
}

// Get returns one entry.
func (s *FAQService) Get(ctx context.Context, id string) (*domain.FAQ, error) {
	faq, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("faq", map[string]any{"faq_id": id})
		}
		return nil, err
	}
	return faq, nil
}

// Create authors a new entry. Staff only; enforced at the route level.
func (s *FAQService) Create(ctx context.Context, creator *domain.User, question, answer, category string) (*domain.FAQ, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, apperrors.NewValidationError("question and answer required", nil)
	}

	faq := &domain.FAQ{
		Question:  question,
		Answer:    answer,
		Category:  strings.TrimSpace(category),
		CreatorID: creator.ID,
	}
	if err := s.faqs.Create(ctx, faq); err != nil {
		return nil, err
	}
	return faq, nil
}
