package ordercache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suidex/dex-proxy/internal/sui"
)

func newOrder(id, pool string) *Order {
	return &Order{ClientOrderID: id, PoolID: pool, Side: sui.Buy, Type: sui.GTC, Quantity: 10, Remaining: 10, Status: PendingInsert}
}

func TestAddGetDelete(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(newOrder("1", "DEEP_SUI")))

	o, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "1", o.ClientOrderID)

	c.Delete("1")
	_, ok = c.Get("1")
	assert.False(t, ok)
}

func TestCapacityEvictsOldestTerminal(t *testing.T) {
	c := New(2)
	require.NoError(t, c.Add(newOrder("1", "P")))
	require.NoError(t, c.Add(newOrder("2", "P")))

	require.NoError(t, c.ApplyCancelSuccess("1", "tx1"))

	require.NoError(t, c.Add(newOrder("3", "P")))
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("1")
	assert.False(t, ok, "oldest terminal order should have been evicted")
	_, ok = c.Get("2")
	assert.True(t, ok)
	_, ok = c.Get("3")
	assert.True(t, ok)
}

func TestAddFailsWhenFullAndNoneEvictable(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Add(newOrder("1", "P")))
	err := c.Add(newOrder("2", "P"))
	assert.ErrorIs(t, err, ErrCacheFull)
}

func TestStatusNeverDowngrades(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(newOrder("1", "P")))
	require.NoError(t, c.ApplyInsertSuccess("1", "exch-1", 10, 0, "tx1", false))

	o, _ := c.Get("1")
	assert.Equal(t, Open, o.Status)

	require.NoError(t, c.ApplyCancelSuccess("1", "tx2"))
	o, _ = c.Get("1")
	assert.Equal(t, Cancelled, o.Status)

	// A later OrderPlaced event must not resurrect a Cancelled order back
	// to Open.
	require.NoError(t, c.ApplyOrderPlacedEvent("1", "exch-1", 10, 0))
	o, _ = c.Get("1")
	assert.Equal(t, Cancelled, o.Status)
}

func TestApplyOrderPlacedEventIsIdempotent(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(newOrder("1", "P")))

	require.NoError(t, c.ApplyOrderPlacedEvent("1", "exch-1", 10, 0))
	first, _ := c.Get("1")

	require.NoError(t, c.ApplyOrderPlacedEvent("1", "exch-1", 10, 0))
	second, _ := c.Get("1")

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.ExchangeOrderID, second.ExchangeOrderID)
	assert.Equal(t, first.Remaining, second.Remaining)
}

func TestGetByExchangeOrderID(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(newOrder("1", "P")))
	require.NoError(t, c.ApplyInsertSuccess("1", "exch-1", 10, 0, "tx1", false))

	o, ok := c.GetByExchangeOrderID("exch-1")
	require.True(t, ok)
	assert.Equal(t, "1", o.ClientOrderID)

	c.Delete("1")
	_, ok = c.GetByExchangeOrderID("exch-1")
	assert.False(t, ok)
}

func TestIOCOrderFinalisesInsteadOfOpening(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(newOrder("1", "P")))
	require.NoError(t, c.ApplyInsertSuccess("1", "exch-1", 0, 10, "tx1", true))

	o, _ := c.Get("1")
	assert.Equal(t, Finalised, o.Status)
}

func TestListFiltersByPool(t *testing.T) {
	c := New(4)
	require.NoError(t, c.Add(newOrder("1", "A")))
	require.NoError(t, c.Add(newOrder("2", "B")))

	assert.Len(t, c.List("A"), 1)
	assert.Len(t, c.List(""), 2)
}
