package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carlfranklin/avnrepo/internal/query"
)

type Customer struct {
	CustomerID string          `json:"id"        bson:"_id"       db:"id"         validate:"required,uuid"`
	FirstName  string          `json:"firstName" bson:"firstName" db:"first_name" validate:"required,max=64"`
	LastName   string          `json:"lastName"  bson:"lastName"  db:"last_name"  validate:"required,max=64"`
	Email      string          `json:"email"     bson:"email"     db:"email"      validate:"required,email"`
	Age        int             `json:"age"       bson:"age"       db:"age"        validate:"gte=0,lte=150"`
	Balance    decimal.Decimal `json:"balance"   bson:"balance"   db:"balance"`
	Active     bool            `json:"active"    bson:"active"    db:"active"`
	Initial    int32           `json:"initial"   bson:"initial"   db:"initial"    query:",char"`
	JoinedAt   time.Time       `json:"joinedAt"  bson:"joinedAt"  db:"joined_at"`
}

func (c Customer) ID() string {
	return c.CustomerID
}

func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Schema exposes every field plus the computed FullName.
var Schema = query.MustSchemaOf[Customer]().
	Register("FullName", query.KindString, func(c Customer) any { return c.FullName() })
