package repository

import (
	"context"

	"github.com/unclebandit/crm-backend/internal/model"
)

// CustomerRepositoryInterface defines methods used by the service.
// Update and Delete return appErrors.ErrCustomerNotFound when no document
// matches, and appErrors.ErrInvalidCustomerID when the id cannot be parsed.
type CustomerRepositoryInterface interface {
	ListAll(ctx context.Context) ([]*model.Customer, error)
	Create(ctx context.Context, c *model.Customer) error
	Update(ctx context.Context, id string, update model.CustomerUpdate) (*model.Customer, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
