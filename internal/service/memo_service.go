package service

import (
	"context"
	"errors"
	"time"

	"go-pen-inventory/internal/model"
	"go-pen-inventory/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemoRequest struct {
	Title string `json:"title" validate:"required,max=50"`
	Text  string `json:"text" validate:"max=1000"`
}

type MemoService interface {
	List(ctx context.Context) ([]model.Memo, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Memo, error)
	Create(ctx context.Context, req *MemoRequest) (*model.Memo, error)
	Update(ctx context.Context, id uuid.UUID, req *MemoRequest) (*model.Memo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoService struct {
	repo repository.MemoRepository
	now  func() time.Time
}

func NewMemoService(repo repository.MemoRepository) MemoService {
	return &memoService{repo: repo, now: time.Now}
}

func (s *memoService) List(ctx context.Context) ([]model.Memo, error) {
	return s.repo.FindAll(ctx)
}

func (s *memoService) Get(ctx context.Context, id uuid.UUID) (*model.Memo, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *memoService) Create(ctx context.Context, req *MemoRequest) (*model.Memo, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.uniqueTitle(ctx, req.Title, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.now()
	memo := &model.Memo{
		Title:               req.Title,
		Text:                req.Text,
		DatetimeLastUpdated: &now,
	}
	if err := s.repo.Create(ctx, memo); err != nil {
		return nil, err
	}
	return memo, nil
}

func (s *memoService) Update(ctx context.Context, id uuid.UUID, req *MemoRequest) (*model.Memo, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	memo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.uniqueTitle(ctx, req.Title, id); err != nil {
		return nil, err
	}

	now := s.now()
	memo.Title = req.Title
	memo.Text = req.Text
	memo.DatetimeLastUpdated = &now
	if err := s.repo.Update(ctx, memo); err != nil {
		return nil, err
	}
	return memo, nil
}

func (s *memoService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *memoService) uniqueTitle(ctx context.Context, title string, self uuid.UUID) error {
	existing, err := s.repo.FindByTitle(ctx, title)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != self {
		verr := model.NewValidationError()
		verr.Add("title", "memo with this title already exists.")
		return verr
	}
	return nil
}
