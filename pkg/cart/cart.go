// Package cart is the local cart sub-cache: it exposes the same
// read/mutate contract as the server-entity coordinators, but its origin is
// durable local storage instead of the network.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/velora-labs/storefront-cache/pkg/catalog"
)

// Errors returned by cart operations.
var (
	// ErrInvalidQuantity is returned when a quantity below 1 is requested;
	// the line is left untouched. Removing a line requires RemoveItem.
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")

	// ErrNotInCart is returned when the product id has no line.
	ErrNotInCart = errors.New("cart: product not in cart")
)

// Item is one cart line: a product with a quantity.
type Item struct {
	ID       string          `json:"id"`
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	AddedAt  time.Time       `json:"addedAt"`
}

// Summary is the derived read model of the cart. Total and ItemCount are
// recomputed on every read, never stored.
type Summary struct {
	Items     []Item
	Total     float64
	ItemCount int
}

// Cart is the local cart. Every mutating operation persists the full item
// list to durable storage before returning, so a reload never loses an
// acknowledged update. A storage write failure degrades the cart to
// memory-only for the session instead of failing the mutation.
type Cart struct {
	mu        sync.Mutex
	items     []Item
	storage   Storage
	namespace string
	degraded  bool
	subs      []subscriber
	nextSub   int
	logger    zerolog.Logger
}

type subscriber struct {
	id int
	fn func(Summary)
}

// New loads the cart persisted under namespace. A corrupt or unreadable
// payload starts an empty cart rather than failing.
func New(ctx context.Context, storage Storage, namespace string) *Cart {
	c := &Cart{
		storage:   storage,
		namespace: namespace,
		logger:    log.With().Str("component", "cart").Str("namespace", namespace).Logger(),
	}

	raw, err := storage.ReadRaw(ctx, namespace)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Cart storage unreadable, starting empty")
		return c
	}
	if raw == "" {
		return c
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Warn().Err(err).Msg("Stored cart corrupt, starting empty")
		return c
	}
	c.items = items
	return c
}

// Read returns the current cart with derived totals.
func (c *Cart) Read() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaryLocked()
}

// AddItem adds qty units of product. Adding a product already in the cart
// increments its line quantity instead of duplicating the line.
func (c *Cart) AddItem(ctx context.Context, product catalog.Product, qty int) (Summary, error) {
	if qty < 1 {
		return c.Read(), ErrInvalidQuantity
	}

	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].Product.ID == product.ID {
			c.items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		c.items = append(c.items, Item{
			ID:       product.ID + "-" + uuid.NewString(),
			Product:  product,
			Quantity: qty,
			AddedAt:  time.Now(),
		})
	}
	return c.commitLocked(ctx), nil
}

// RemoveItem deletes the line for productID.
func (c *Cart) RemoveItem(ctx context.Context, productID string) (Summary, error) {
	c.mu.Lock()
	kept := c.items[:0]
	removed := false
	for _, item := range c.items {
		if item.Product.ID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
	if !removed {
		summary := c.summaryLocked()
		c.mu.Unlock()
		return summary, ErrNotInCart
	}
	return c.commitLocked(ctx), nil
}

// SetQuantity replaces the quantity of the line for productID. Quantities
// below 1 are rejected, not floored; the line keeps its last valid
// quantity and the caller must use RemoveItem to reach zero.
func (c *Cart) SetQuantity(ctx context.Context, productID string, qty int) (Summary, error) {
	if qty < 1 {
		return c.Read(), ErrInvalidQuantity
	}

	c.mu.Lock()
	found := false
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items[i].Quantity = qty
			found = true
			break
		}
	}
	if !found {
		summary := c.summaryLocked()
		c.mu.Unlock()
		return summary, ErrNotInCart
	}
	return c.commitLocked(ctx), nil
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	c.items = nil
	return c.commitLocked(ctx), nil
}

// Subscribe registers fn for cart changes and returns an unsubscribe
// function. Listeners fire in registration order after every mutation.
func (c *Cart) Subscribe(fn func(Summary)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Degraded reports whether a storage failure has put the cart in
// memory-only mode for the session.
func (c *Cart) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// commitLocked persists the item list, releases the lock and notifies
// subscribers. Persistence failure is recovered in place: the in-memory
// mutation stands, and the cart degrades to memory-only with a warning.
func (c *Cart) commitLocked(ctx context.Context) Summary {
	data, err := json.Marshal(c.items)
	if err == nil {
		err = c.storage.WriteRaw(ctx, c.namespace, string(data))
	}
	if err != nil && !c.degraded {
		c.degraded = true
		c.logger.Warn().Err(err).Msg("Cart storage write failed, degrading to memory-only")
	}

	summary := c.summaryLocked()
	listeners := make([]func(Summary), len(c.subs))
	for i, sub := range c.subs {
		listeners[i] = sub.fn
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(summary)
	}
	return summary
}

// summaryLocked recomputes the derived totals. Items are copied so callers
// never alias the cart's internal slice.
func (c *Cart) summaryLocked() Summary {
	items := make([]Item, len(c.items))
	copy(items, c.items)

	summary := Summary{Items: items}
	for _, item := range items {
		summary.Total += item.Product.Price * float64(item.Quantity)
		summary.ItemCount += item.Quantity
	}
	return summary
}
