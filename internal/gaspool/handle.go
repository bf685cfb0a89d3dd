package gaspool

import "github.com/suidex/dex-proxy/internal/sui"

// Handle is a reference to a coin owned by a Manager. It carries no mutable
// state of its own; every field read or write about the underlying coin
// goes back through the Manager, which is the sole owner of the backing
// array. The handle pins the coin's own *trackedCoin rather than its
// position in m.children, so it stays valid across a reconciler tick that
// reslices m.children out from under an in-flight acquisition.
type Handle struct {
	coin   *trackedCoin
	isMain bool
}

// Ref returns the object reference (id/version/digest) a transaction
// recipe should use as its gas payment for this handle, as of acquisition
// time.
func (m *Manager) Ref(h Handle) sui.ObjectRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coin(h).ref
}

func (m *Manager) coin(h Handle) *trackedCoin {
	if h.isMain {
		return m.main
	}
	return h.coin
}
