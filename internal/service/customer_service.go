// internal/service/customer_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
)

type CustomerService struct {
	CustomerRepo repository.CustomerRepositoryInterface
	// Queue receives a CustomerEvent after every successful write. Optional.
	Queue  queue.Queue
	Logger *zap.Logger

	// Now is overridable in tests
	Now func() time.Time
}

func NewCustomerService(repo repository.CustomerRepositoryInterface, q queue.Queue, logger *zap.Logger) *CustomerService {
	return &CustomerService{CustomerRepo: repo, Queue: q, Logger: logger, Now: time.Now}
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	return s.CustomerRepo.ListAll(ctx)
}

// CreateCustomer stamps createdAt and inserts c. The store assigns the id.
// Stores keep millisecond precision, so the stamp is truncated to match
// what a later read returns.
func (s *CustomerService) CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	c.ID = ""
	c.CreatedAt = s.Now().UTC().Truncate(time.Millisecond)

	if err := s.CustomerRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publish(queue.TopicCustomerCreated, c.ID)
	return c, nil
}

// UpdateCustomer applies the name/email/phone fields present in update and
// returns the stored customer after the write.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, update model.CustomerUpdate) (*model.Customer, error) {
	c, err := s.CustomerRepo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	if !update.IsEmpty() {
		s.publish(queue.TopicCustomerUpdated, c.ID)
	}
	return c, nil
}

func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.CustomerRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(queue.TopicCustomerDeleted, id)
	return nil
}

// Healthy reports whether the store answers a ping.
func (s *CustomerService) Healthy(ctx context.Context) error {
	return s.CustomerRepo.Ping(ctx)
}

// publish never fails the request: the write is already committed.
func (s *CustomerService) publish(topic, customerID string) {
	if s.Queue == nil {
		return
	}

	if err := s.Queue.Publish(topic, queue.NewCustomerEvent(topic, customerID)); err != nil {
		s.Logger.Warn("Failed to publish customer event",
			zap.String("topic", topic),
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}
}
