// internal/controller/customer_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/service"
)

const (
	msgNotFound     = "Customer not found"
	msgDeleted      = "Customer deleted successfully"
	msgFetchFailed  = "Failed to fetch customers"
	msgCreateFailed = "Failed to create customer"
	msgUpdateFailed = "Failed to update customer"
	msgDeleteFailed = "Failed to delete customer"
	maxBodyBytes    = 1 << 20
	statusUp        = "UP"
	statusDown      = "DOWN"
)

type CustomerController struct {
	CustomerService *service.CustomerService
	Logger          *zap.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *CustomerController) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := c.CustomerService.ListCustomers(r.Context())
	if err != nil {
		c.writeError(w, r, err, msgFetchFailed)
		return
	}

	writeJSON(w, http.StatusOK, customers)
}

func (c *CustomerController) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var body model.Customer
	if err := decodeBody(w, r, &body); err != nil {
		c.writeError(w, r, err, msgCreateFailed)
		return
	}

	customer, err := c.CustomerService.CreateCustomer(r.Context(), &body)
	if err != nil {
		c.writeError(w, r, err, msgCreateFailed)
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

func (c *CustomerController) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body model.CustomerUpdate
	if err := decodeBody(w, r, &body); err != nil {
		c.writeError(w, r, err, msgUpdateFailed)
		return
	}

	customer, err := c.CustomerService.UpdateCustomer(r.Context(), id, body)
	if err != nil {
		c.writeError(w, r, err, msgUpdateFailed)
		return
	}

	writeJSON(w, http.StatusOK, model.NewUpdatedCustomer(customer))
}

func (c *CustomerController) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.CustomerService.DeleteCustomer(r.Context(), id); err != nil {
		c.writeError(w, r, err, msgDeleteFailed)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgDeleted})
}

// Health pings the store.
func (c *CustomerController) Health(w http.ResponseWriter, r *http.Request) {
	if err := c.CustomerService.Healthy(r.Context()); err != nil {
		c.Logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": statusDown})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

// writeError is the single place where failures become responses: unknown
// ids are 404, everything else is logged and answered with a generic 500.
func (c *CustomerController) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var notFound *appErrors.ErrCustomerNotFound
	if errors.As(err, &notFound) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: msgNotFound})
		return
	}

	c.Logger.Error(message,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, messageResponse{Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
