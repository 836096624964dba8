package catalog_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ItemCatalog/internal/catalog"
)

func TestItem_WithPreservesIdentity(t *testing.T) {
	created := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	orig := catalog.Item{ID: "x", Name: "Potion", Price: decimal.NewFromInt(5), CreatedDate: created}

	next := orig.With("Elixir", decimal.RequireFromString("12.50"))

	if next.ID != "x" || !next.CreatedDate.Equal(created) {
		t.Fatalf("identity changed: %+v", next)
	}
	if next.Name != "Elixir" || !next.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("fields not replaced: %+v", next)
	}
	if orig.Name != "Potion" {
		t.Fatalf("original mutated: %+v", orig)
	}
}

func TestItemDto_PriceIsJSONNumber(t *testing.T) {
	dto := catalog.Item{
		ID:          "x",
		Name:        "Potion",
		Price:       decimal.RequireFromString("9.99"),
		CreatedDate: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
	}.AsDto()

	raw, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"price":9.99`) {
		t.Fatalf("body=%s", raw)
	}
	if !strings.Contains(string(raw), `"createdDate":"2023-05-01T10:00:00Z"`) {
		t.Fatalf("body=%s", raw)
	}
}

func TestCreateItemDto_AcceptsNumberOrString(t *testing.T) {
	for _, body := range []string{
		`{"name":"Potion","price":5.25}`,
		`{"name":"Potion","price":"5.25"}`,
	} {
		var req catalog.CreateItemDto
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		if !req.Price.Equal(decimal.RequireFromString("5.25")) {
			t.Fatalf("%s: price=%s", body, req.Price)
		}
	}
}
