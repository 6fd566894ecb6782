// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCustomerNotFound is returned when no document matches the requested id.
type ErrCustomerNotFound struct {
	CustomerID string
}

func (e *ErrCustomerNotFound) Error() string {
	return fmt.Sprintf("customer with ID %s not found", e.CustomerID)
}

// Helper constructor
func NewCustomerNotFound(id string) error {
	return &ErrCustomerNotFound{CustomerID: id}
}

// ErrInvalidCustomerID is returned when an id cannot be parsed by the store.
type ErrInvalidCustomerID struct {
	CustomerID string
	Err        error
}

func (e *ErrInvalidCustomerID) Error() string {
	return fmt.Sprintf("invalid customer ID %q: %v", e.CustomerID, e.Err)
}

func (e *ErrInvalidCustomerID) Unwrap() error {
	return e.Err
}

func NewInvalidCustomerID(id string, err error) error {
	return &ErrInvalidCustomerID{CustomerID: id, Err: err}
}
