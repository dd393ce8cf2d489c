package agent

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInventoryFIFO(t *testing.T) {
	var inv Inventory
	_, ok := inv.Sell(10)
	assert.False(t, ok)

	inv.Buy(10.5)
	inv.Buy(12)
	assert.Equal(t, 2, inv.Len())

	profit, ok := inv.Sell(11)
	assert.True(t, ok)
	assert.True(t, profit.Equal(decimal.NewFromFloat(0.5)), profit.String())
	assert.Equal(t, 1, inv.Len())
	assert.True(t, inv.Lots()[0].Equal(decimal.NewFromInt(12)))

	inv.Reset()
	assert.Zero(t, inv.Len())
}
