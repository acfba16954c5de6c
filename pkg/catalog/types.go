// Package catalog defines the storefront entities exchanged with the remote
// API and cached by the synchronization layer.
package catalog

import "time"

// Entity type names used for cache keys and gateway routing.
const (
	TypeProduct  = "products"
	TypeCategory = "categories"
	TypeBrand    = "brands"
	TypeOrder    = "orders"
	TypeUser     = "users"
	TypeCart     = "cart"
	TypeStats    = "stats"
)

// Entity is implemented by every cacheable storefront entity.
type Entity interface {
	// EntityID returns the stable server-assigned identifier, or a
	// temporary id while an optimistic create is pending.
	EntityID() string
}

// Image is an uploaded product or category image.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}

// Product is a catalog item sold by a merchant.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CategoryID  string    `json:"categoryId,omitempty"`
	BrandID     string    `json:"brandId,omitempty"`
	MerchantID  string    `json:"merchantId,omitempty"`
	Images      []Image   `json:"images,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

func (p Product) EntityID() string { return p.ID }

// Category groups products; categories may nest one level via ParentID.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
}

func (c Category) EntityID() string { return c.ID }

// Brand is a product manufacturer or label.
type Brand struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	LogoURL string `json:"logoUrl,omitempty"`
}

func (b Brand) EntityID() string { return b.ID }

// Order status values as reported by the remote API.
const (
	OrderDraft             = "DRAFT"
	OrderPendingPayment    = "PENDING_PAYMENT"
	OrderPaymentSuccessful = "PAYMENT_SUCCESSFUL"
	OrderPaymentFailed     = "PAYMENT_FAILED"
	OrderProcessing        = "PROCESSING"
	OrderShipped           = "SHIPPED"
	OrderDelivered         = "DELIVERED"
	OrderCancelled         = "CANCELLED"
)

// OrderItem is one product line within an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// DeliveryAddress is the shipping destination of an order.
type DeliveryAddress struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// Order is a placed customer order.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	MerchantID      string          `json:"merchantId,omitempty"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress,omitzero"`
	CreatedAt       time.Time       `json:"createdAt,omitzero"`
	UpdatedAt       time.Time       `json:"updatedAt,omitzero"`
}

func (o Order) EntityID() string { return o.ID }

// User roles.
const (
	RoleClient   = "CLIENT"
	RoleMerchant = "MERCHANT"
	RoleAdmin    = "ADMIN"
)

// User is a storefront account (client, merchant or admin).
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

func (u User) EntityID() string { return u.ID }

// Merchant profile status values.
const (
	MerchantPending   = "PENDING"
	MerchantApproved  = "APPROVED"
	MerchantRejected  = "REJECTED"
	MerchantSuspended = "SUSPENDED"
)

// MerchantProfile is the back-office profile of a merchant account.
type MerchantProfile struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	BusinessName    string `json:"businessName"`
	BusinessType    string `json:"businessType,omitempty"`
	BusinessAddress string `json:"businessAddress,omitempty"`
	BusinessPhone   string `json:"businessPhone,omitempty"`
	BusinessEmail   string `json:"businessEmail,omitempty"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	LogoURL         string `json:"logoUrl,omitempty"`
	Website         string `json:"website,omitempty"`
}

func (m MerchantProfile) EntityID() string { return m.ID }
