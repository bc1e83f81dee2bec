package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

func customer(id, first, last, email string, age int, balance string, active bool, joined string) Customer {
	at, err := time.Parse(time.DateOnly, joined)
	if err != nil {
		panic(err)
	}

	return Customer{
		CustomerID: id,
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Age:        age,
		Balance:    decimal.RequireFromString(balance),
		Active:     active,
		Initial:    []rune(first)[0],
		JoinedAt:   at,
	}
}

// Seed is the starting data of an empty in-memory store.
func Seed() []Customer {
	return []Customer{
		customer("2f1c6c1e-8a55-4c1b-9d36-0f3e8c1d6a01", "Carl", "Franklin", "carl@example.com", 52, "1520.75", true, "2019-03-14"),
		customer("6b8e7c0a-3d4f-4b8e-a1f2-7e9d0c5b4a02", "Richard", "Campbell", "richard@example.com", 57, "310.00", true, "2020-07-01"),
		customer("9c2d4e6f-1a3b-4c5d-8e7f-0a1b2c3d4e03", "Jeff", "Fritz", "jeff@example.com", 45, "0", false, "2021-11-23"),
		customer("0e4f6a8b-2c3d-4e5f-9a0b-1c2d3e4f5a04", "Dana", "Scully", "dana@example.com", 38, "9999.99", true, "2022-02-02"),
		customer("7a9b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c05", "Élodie", "Durand", "elodie@example.com", 29, "42.10", false, "2023-05-19"),
	}
}
