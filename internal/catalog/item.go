package catalog

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Item is the stored catalog entry. Values are treated as immutable once
// stored; updates build a new Item with With.
type Item struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	CreatedDate time.Time
}

// With returns a copy of it carrying the given name and price. ID and
// CreatedDate are preserved.
func (it Item) With(name string, price decimal.Decimal) Item {
	return Item{
		ID:          it.ID,
		Name:        name,
		Price:       price,
		CreatedDate: it.CreatedDate,
	}
}

func (it Item) AsDto() ItemDto {
	return ItemDto{
		ID:          it.ID,
		Name:        it.Name,
		Price:       it.Price,
		CreatedDate: it.CreatedDate,
	}
}

type ItemDto struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CreatedDate time.Time       `json:"createdDate"`
}

// MarshalJSON writes price as a JSON number instead of decimal's default
// quoted string.
func (d ItemDto) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Price       json.RawMessage `json:"price"`
		CreatedDate time.Time       `json:"createdDate"`
	}
	return json.Marshal(wire{
		ID:          d.ID,
		Name:        d.Name,
		Price:       json.RawMessage(d.Price.String()),
		CreatedDate: d.CreatedDate,
	})
}

type CreateItemDto struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type UpdateItemDto struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
