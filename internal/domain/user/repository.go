package user

import "context"

type Repository interface {
	Create(ctx context.Context, e Entity) (Entity, error)
	GetByEmail(ctx context.Context, email string) (Entity, bool, error)
	GetByID(ctx context.Context, id string) (Entity, bool, error)
}
