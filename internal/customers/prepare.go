package customers

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Prepare completes a new customer and validates it: a missing id becomes a
// random uuid, a missing join date becomes now and a missing initial is taken
// from the first name.
func Prepare(c Customer) (Customer, error) {
	if c.CustomerID == "" {
		c.CustomerID = uuid.NewString()
	}
	if c.JoinedAt.IsZero() {
		c.JoinedAt = time.Now().UTC().Truncate(time.Second)
	}
	return Validate(c)
}

// Validate normalizes the editable fields and checks the customer.
func Validate(c Customer) (Customer, error) {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))

	if c.Initial == 0 && c.FirstName != "" {
		r, _ := utf8.DecodeRuneInString(c.FirstName)
		c.Initial = r
	}

	return c, validate.Struct(c)
}
