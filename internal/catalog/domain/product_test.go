package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockStatus(t *testing.T) {
	tests := []struct {
		stock int
		want  string
	}{
		{0, "Out of Stock"},
		{1, "Low Stock"},
		{9, "Low Stock"},
		{10, "In Stock"},
		{500, "In Stock"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Product{Stock: tc.stock}.StockStatus(), "stock=%d", tc.stock)
	}
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryHomeGarden.Valid())
	assert.False(t, Category("Cars").Valid())
	assert.False(t, Category("").Valid())
}
