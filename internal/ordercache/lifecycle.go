package ordercache

// ApplyInsertSuccess is called by the insert handler after a successful
// submission. ioc marks the order Finalised instead of Open (IOC orders
// are not meant to rest on the book).
func (c *Cache) ApplyInsertSuccess(id string, exchangeOrderID string, remaining, executed uint64, digest string, ioc bool) error {
	return c.mutate(id, func(o *Order) {
		if o.ExchangeOrderID == "" {
			o.ExchangeOrderID = exchangeOrderID
		}
		o.Remaining = remaining
		o.Executed = executed
		o.TxDigests = append(o.TxDigests, digest)
		if ioc {
			o.Status = Finalised
		} else {
			o.Status = Open
		}
	})
}

// ApplyInsertFailure records the digest of a failed insert attempt without
// advancing status (callers typically delete the order afterward since it
// never reached the book).
func (c *Cache) ApplyInsertFailure(id string, digest string) error {
	return c.mutate(id, func(o *Order) {
		if digest != "" {
			o.TxDigests = append(o.TxDigests, digest)
		}
	})
}

// ApplyCancelSuccess is called by the cancel handler: marks Cancelled
// and the caller is expected to Delete afterward.
func (c *Cache) ApplyCancelSuccess(id string, digest string) error {
	return c.mutate(id, func(o *Order) {
		if digest != "" {
			o.TxDigests = append(o.TxDigests, digest)
		}
		o.Status = Cancelled
	})
}

// ApplyOrderPlacedEvent is the event-subscriber handler for an OrderPlaced
// event: records the exchange_order_id if missing and sets
// remaining/executed. Applying the same event twice is idempotent
// because every field write here is either an overwrite with the same
// value or a no-op once ExchangeOrderID is already set.
func (c *Cache) ApplyOrderPlacedEvent(id, exchangeOrderID string, remaining, executed uint64) error {
	return c.mutate(id, func(o *Order) {
		if o.ExchangeOrderID == "" {
			o.ExchangeOrderID = exchangeOrderID
		}
		o.Remaining = remaining
		o.Executed = executed
		if o.Status == PendingInsert {
			o.Status = Open
		}
	})
}

// ApplyOrderFilledEvent records a fill. It never deletes the order -- only
// cancellation/finalisation do.
func (c *Cache) ApplyOrderFilledEvent(id string, remaining, executed uint64, fullyFilled bool) error {
	return c.mutate(id, func(o *Order) {
		o.Remaining = remaining
		o.Executed = executed
		if fullyFilled {
			o.Status = Finalised
		}
	})
}

// ApplyOrderCancelledEvent handles OrderCanceled / AllOrdersCanceled:
// marks Cancelled; the caller deletes afterward.
func (c *Cache) ApplyOrderCancelledEvent(id string) error {
	return c.mutate(id, func(o *Order) {
		o.Status = Cancelled
	})
}
