package mutation

import (
	"github.com/velora-labs/storefront-cache/pkg/cache"
	"github.com/velora-labs/storefront-cache/pkg/catalog"
)

// Per-entity constructors. Each instantiation of the generic coordinator
// only differs by its id stamp, so the closures live here in one place.

// ForProducts creates the product mutation coordinator.
func ForProducts(store *cache.Store, gateway Gateway[catalog.Product]) *Coordinator[catalog.Product] {
	return NewCoordinator(catalog.TypeProduct, store, gateway, func(p catalog.Product, id string) catalog.Product {
		p.ID = id
		return p
	})
}

// ForCategories creates the category mutation coordinator.
func ForCategories(store *cache.Store, gateway Gateway[catalog.Category]) *Coordinator[catalog.Category] {
	return NewCoordinator(catalog.TypeCategory, store, gateway, func(c catalog.Category, id string) catalog.Category {
		c.ID = id
		return c
	})
}

// ForBrands creates the brand mutation coordinator.
func ForBrands(store *cache.Store, gateway Gateway[catalog.Brand]) *Coordinator[catalog.Brand] {
	return NewCoordinator(catalog.TypeBrand, store, gateway, func(b catalog.Brand, id string) catalog.Brand {
		b.ID = id
		return b
	})
}

// ForOrders creates the order mutation coordinator.
func ForOrders(store *cache.Store, gateway Gateway[catalog.Order]) *Coordinator[catalog.Order] {
	return NewCoordinator(catalog.TypeOrder, store, gateway, func(o catalog.Order, id string) catalog.Order {
		o.ID = id
		return o
	})
}

// ForUsers creates the user mutation coordinator.
func ForUsers(store *cache.Store, gateway Gateway[catalog.User]) *Coordinator[catalog.User] {
	return NewCoordinator(catalog.TypeUser, store, gateway, func(u catalog.User, id string) catalog.User {
		u.ID = id
		return u
	})
}
