package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/pricing"
)

// NoticeKind classifies user-facing cart notices.
type NoticeKind string

const (
	NoticeAdded     NoticeKind = "added"
	NoticeIncreased NoticeKind = "increased"
	NoticeRemoved   NoticeKind = "removed"
	NoticeCleared   NoticeKind = "cleared"
)

// Notice is a short message describing a cart change, suitable for a toast.
type Notice struct {
	Kind      NoticeKind
	ProductID int
	Message   string
}

// Notifier receives cart notices. Implementations must not call back into the
// Manager.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Snapshot is a point-in-time view of the cart.
type Snapshot struct {
	Lines   []Line          `json:"lines"`
	Open    bool            `json:"open"`
	Count   int             `json:"itemCount"`
	Summary pricing.Summary `json:"summary"`
}

// Manager owns the cart lines and persists them after every mutation.
// Persistence is best effort: failures are logged and counted, never returned.
type Manager struct {
	mu       sync.Mutex
	lines    []Line
	open     bool
	store    Store
	taxBps   int
	logger   zerolog.Logger
	notifier Notifier
}

// ManagerConfig groups Manager dependencies.
type ManagerConfig struct {
	Store    Store
	TaxBps   int
	Logger   *zerolog.Logger
	Notifier Notifier
}

// NewManager rehydrates the cart from cfg.Store. Missing or corrupt data
// starts an empty cart.
func NewManager(ctx context.Context, cfg ManagerConfig) *Manager {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore(nil)
	}
	taxBps := cfg.TaxBps
	if taxBps == 0 {
		taxBps = pricing.DefaultTaxBps
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	m := &Manager{
		lines:    []Line{},
		store:    store,
		taxBps:   taxBps,
		logger:   logger,
		notifier: cfg.Notifier,
	}
	m.rehydrate(ctx)
	return m
}

func (m *Manager) rehydrate(ctx context.Context) {
	data, err := m.store.Load(ctx)
	if err != nil {
		obs.IncCounter(obs.CartStoreFailuresTotal, "load")
		m.logger.Warn().Err(err).Msg("cart load failed, starting empty")
		return
	}
	lines, err := DecodeLines(data)
	if err != nil {
		obs.IncCounter(obs.CartStoreFailuresTotal, "decode")
		m.logger.Warn().Err(err).Int("lines", len(lines)).Msg("cart restored with repairs")
	}
	m.lines = lines
}

// AddItem appends product with qty, or increments the existing line for the
// same product id. Quantities below one count as one.
func (m *Manager) AddItem(ctx context.Context, product catalog.Product, qty int) {
	if qty < 1 {
		qty = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexLocked(product.ID); i >= 0 {
		m.lines[i].Quantity += qty
		m.commitLocked(ctx, "add")
		m.notify(ctx, Notice{Kind: NoticeIncreased, ProductID: product.ID, Message: fmt.Sprintf("Added %d more %s to cart", qty, product.Name)})
		return
	}
	m.lines = append(m.lines, Line{Product: product.Clone(), Quantity: qty})
	m.commitLocked(ctx, "add")
	m.notify(ctx, Notice{Kind: NoticeAdded, ProductID: product.ID, Message: fmt.Sprintf("Added %s to cart", product.Name)})
}

// RemoveItem drops the line for productID. Unknown ids are a no-op.
func (m *Manager) RemoveItem(ctx context.Context, productID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(ctx, productID)
}

// UpdateQuantity sets the quantity for productID. A quantity of zero or less
// removes the line. Unknown ids are a no-op.
func (m *Manager) UpdateQuantity(ctx context.Context, productID int, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty <= 0 {
		m.removeLocked(ctx, productID)
		return
	}
	i := m.indexLocked(productID)
	if i < 0 {
		return
	}
	m.lines[i].Quantity = qty
	m.commitLocked(ctx, "update")
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = []Line{}
	m.commitLocked(ctx, "clear")
	m.notify(ctx, Notice{Kind: NoticeCleared, Message: "Cart cleared"})
}

// Subtract takes quantities (keyed by product id) off their lines in a single
// commit. Lines that reach zero are dropped; lines not named are kept.
func (m *Manager) Subtract(ctx context.Context, quantities map[int]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]Line, 0, len(m.lines))
	changed := false
	for _, l := range m.lines {
		if q := quantities[l.ID]; q > 0 {
			changed = true
			l.Quantity -= q
			if l.Quantity <= 0 {
				continue
			}
		}
		kept = append(kept, l)
	}
	if !changed {
		return
	}
	m.lines = kept
	m.commitLocked(ctx, "subtract")
	if len(kept) == 0 {
		m.notify(ctx, Notice{Kind: NoticeCleared, Message: "Cart cleared"})
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneLines(m.lines)
}

// Line returns the line for productID, if any.
func (m *Manager) Line(productID int) (Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(productID)
	if i < 0 {
		return Line{}, false
	}
	return Line{Product: m.lines[i].Product.Clone(), Quantity: m.lines[i].Quantity}, true
}

// Len returns the number of distinct lines.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

// ItemCount returns the sum of quantities.
func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lines {
		n += l.Quantity
	}
	return n
}

// Summary computes subtotal, tax and total on demand.
func (m *Manager) Summary() pricing.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryLocked()
}

func (m *Manager) summaryLocked() pricing.Summary {
	items := make([]pricing.Item, 0, len(m.lines))
	for _, l := range m.lines {
		items = append(items, pricing.Item{Qty: l.Quantity, UnitPrice: l.Price})
	}
	return pricing.Compute(items, m.taxBps)
}

// Snapshot returns lines, visibility and totals taken under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.lines {
		count += l.Quantity
	}
	return Snapshot{
		Lines:   cloneLines(m.lines),
		Open:    m.open,
		Count:   count,
		Summary: m.summaryLocked(),
	}
}

// Subtotal is Σ price × quantity.
func (m *Manager) Subtotal() decimal.Decimal { return m.Summary().Subtotal }

// Tax is the subtotal times the configured tax rate.
func (m *Manager) Tax() decimal.Decimal { return m.Summary().Tax }

// Total is subtotal plus tax.
func (m *Manager) Total() decimal.Decimal { return m.Summary().Total }

// IsOpen reports whether the cart panel is shown.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// SetOpen shows or hides the cart panel. Visibility is not persisted.
func (m *Manager) SetOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = open
}

// Toggle flips visibility and returns the new state.
func (m *Manager) Toggle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = !m.open
	return m.open
}

func (m *Manager) removeLocked(ctx context.Context, productID int) {
	i := m.indexLocked(productID)
	if i < 0 {
		return
	}
	removed := m.lines[i]
	m.lines = append(m.lines[:i], m.lines[i+1:]...)
	m.commitLocked(ctx, "remove")
	m.notify(ctx, Notice{Kind: NoticeRemoved, ProductID: productID, Message: fmt.Sprintf("Removed %s from cart", removed.Name)})
}

func (m *Manager) indexLocked(productID int) int {
	for i, l := range m.lines {
		if l.ID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) commitLocked(ctx context.Context, op string) {
	obs.IncCounter(obs.CartMutationsTotal, op)
	data, err := EncodeLines(m.lines)
	if err == nil {
		err = m.store.Save(ctx, data)
	}
	if err != nil {
		obs.IncCounter(obs.CartStoreFailuresTotal, "save")
		m.logger.Warn().Err(err).Str("op", op).Msg("cart save failed")
	}
}

func (m *Manager) notify(ctx context.Context, n Notice) {
	if m.notifier == nil {
		m.logger.Debug().Str("kind", string(n.Kind)).Int("product_id", n.ProductID).Msg(n.Message)
		return
	}
	m.notifier.Notify(ctx, n)
}
