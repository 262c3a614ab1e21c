package room

import (
	"context"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	FindEligible(ctx context.Context, minCapacity int) ([]*Room, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	if filter.MinCapacity < 0 {
		return nil, 0, ErrInvalidCapacity
	}
	return s.repo.List(ctx, filter)
}

func (s *service) FindEligible(ctx context.Context, minCapacity int) ([]*Room, error) {
	if minCapacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return s.repo.FindEligible(ctx, minCapacity)
}
