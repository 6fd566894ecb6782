// internal/model/customer.go
package model

import (
	"encoding/json"
	"time"
)

// Document keys with a fixed meaning. Everything else a client sends on
// create is kept in Attributes and stored as-is.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldCreatedAt = "createdAt"
)

// Customer is a stored customer document. Name, Email and Phone are nil
// when the document does not carry the key, so an empty string survives a
// round trip.
type Customer struct {
	ID         string
	Name       *string
	Email      *string
	Phone      *string
	CreatedAt  time.Time
	Attributes map[string]any
}

// Document returns the customer's stored fields without id and createdAt,
// which every store keeps on its own.
func (c *Customer) Document() map[string]any {
	doc := make(map[string]any, len(c.Attributes)+3)
	for k, v := range c.Attributes {
		doc[k] = v
	}
	if c.Name != nil {
		doc[FieldName] = *c.Name
	}
	if c.Email != nil {
		doc[FieldEmail] = *c.Email
	}
	if c.Phone != nil {
		doc[FieldPhone] = *c.Phone
	}
	return doc
}

// FromDocument is the inverse of Document. Known fields that are not strings
// stay in Attributes so they round-trip unchanged.
func FromDocument(id string, createdAt time.Time, doc map[string]any) *Customer {
	c := &Customer{ID: id, CreatedAt: createdAt, Attributes: map[string]any{}}
	for k, v := range doc {
		switch k {
		case FieldID, "_id", FieldCreatedAt:
			continue
		}
		s, isString := v.(string)
		switch {
		case k == FieldName && isString:
			c.Name = &s
		case k == FieldEmail && isString:
			c.Email = &s
		case k == FieldPhone && isString:
			c.Phone = &s
		default:
			c.Attributes[k] = v
		}
	}
	return c
}

func (c Customer) MarshalJSON() ([]byte, error) {
	out := c.Document()
	out[FieldID] = c.ID
	if !c.CreatedAt.IsZero() {
		out[FieldCreatedAt] = c.CreatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object. Client supplied id, _id and
// createdAt are dropped: the store and the service own those.
func (c *Customer) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*c = *FromDocument("", time.Time{}, doc)
	return nil
}

// CustomerUpdate carries the only fields an update may touch. Nil fields
// are left as they are in the store.
type CustomerUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Fields returns the fields present in the update, keyed by document field name.
func (u CustomerUpdate) Fields() map[string]string {
	fields := map[string]string{}
	if u.Name != nil {
		fields[FieldName] = *u.Name
	}
	if u.Email != nil {
		fields[FieldEmail] = *u.Email
	}
	if u.Phone != nil {
		fields[FieldPhone] = *u.Phone
	}
	return fields
}

func (u CustomerUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil
}

// UpdatedCustomer is the response body of an update.
type UpdatedCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func NewUpdatedCustomer(c *Customer) UpdatedCustomer {
	return UpdatedCustomer{ID: c.ID, Name: deref(c.Name), Email: deref(c.Email), Phone: deref(c.Phone)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
