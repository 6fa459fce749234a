package common

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestLayoutSizes(t *testing.T) {
	assert.EqualValues(t, 64, unsafe.Sizeof(Order{}), "Order must be exactly one cache line")
	assert.EqualValues(t, 64, unsafe.Sizeof(Trade{}), "Trade must be exactly one cache line")
}

func TestOrderPredicates(t *testing.T) {
	o := Order{Quantity: 10, ExecutedQuantity: 4}
	assert.EqualValues(t, 6, o.Remaining())
	assert.False(t, o.Filled())

	o.ExecutedQuantity = 10
	assert.True(t, o.Filled())
	assert.EqualValues(t, 0, o.Remaining())
}

func TestTradeAggressorAccessors(t *testing.T) {
	tr := Trade{BuyOrderID: 1, SellOrderID: 2, AggressorSide: Buy}
	assert.EqualValues(t, 1, tr.AggressorOrderID())
	assert.EqualValues(t, 2, tr.PassiveOrderID())
	assert.False(t, tr.BuyIsMaker())

	tr.AggressorSide = Sell
	assert.EqualValues(t, 2, tr.AggressorOrderID())
	assert.EqualValues(t, 1, tr.PassiveOrderID())
	assert.True(t, tr.BuyIsMaker())
}
