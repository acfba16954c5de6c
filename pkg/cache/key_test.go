package cache

import (
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "type prefix",
			key:  TypePrefix("products"),
			want: "store:products",
		},
		{
			name: "unfiltered list",
			key:  ListKey("categories", nil),
			want: "store:categories:list",
		},
		{
			name: "filtered list",
			key:  ListKey("products", map[string]string{"categoryId": "c1"}),
			want: "store:products:list:categoryId=c1",
		},
		{
			name: "filtered list with multiple filters (sorted)",
			key:  ListKey("products", map[string]string{"page": "2", "categoryId": "c1"}),
			want: "store:products:list:categoryId=c1:page=2",
		},
		{
			name: "detail",
			key:  DetailKey("products", "p42"),
			want: "store:products:detail:p42",
		},
		{
			name: "derived view",
			key:  ViewKey("orders", "byMerchant", "m7"),
			want: "store:orders:byMerchant:m7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_FilterPermutations(t *testing.T) {
	f1 := map[string]string{"a": "1", "b": "2", "c": "3"}
	f2 := map[string]string{"c": "3", "a": "1", "b": "2"}

	k1 := ListKey("products", f1)
	k2 := ListKey("products", f2)

	if k1.String() != k2.String() {
		t.Errorf("Permuted filters produced different keys: %q vs %q", k1, k2)
	}
}

func TestKey_String_EscapesSeparators(t *testing.T) {
	// a filter value containing the separator characters must not collide
	// with a structurally different filter set
	smuggled := ListKey("products", map[string]string{"a": "1:b=2"})
	honest := ListKey("products", map[string]string{"a": "1", "b": "2"})

	if smuggled.String() == honest.String() {
		t.Fatalf("Distinct keys serialize identically: %q", smuggled)
	}
	if want := `store:products:list:a=1\:b\=2`; smuggled.String() != want {
		t.Errorf("String() = %q, want %q", smuggled.String(), want)
	}

	// args are escaped the same way
	tricky := DetailKey("products", `p:1=x\y`)
	if want := `store:products:detail:p\:1\=x\\y`; tricky.String() != want {
		t.Errorf("String() = %q, want %q", tricky.String(), want)
	}

	// escaping is deterministic, so the key still matches itself
	if !tricky.HasPrefix(tricky) {
		t.Error("Escaped key does not match itself as a prefix")
	}
}

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{
			name:   "type prefix matches list",
			key:    ListKey("products", map[string]string{"categoryId": "c1"}),
			prefix: TypePrefix("products"),
			want:   true,
		},
		{
			name:   "type prefix matches detail",
			key:    DetailKey("products", "p1"),
			prefix: TypePrefix("products"),
			want:   true,
		},
		{
			name:   "list prefix does not match detail",
			key:    DetailKey("products", "p1"),
			prefix: ListPrefix("products"),
			want:   false,
		},
		{
			name:   "different type does not match",
			key:    ListKey("brands", nil),
			prefix: TypePrefix("products"),
			want:   false,
		},
		{
			name:   "similar type name does not match",
			key:    ListKey("productsArchive", nil),
			prefix: TypePrefix("products"),
			want:   false,
		},
		{
			name:   "key matches itself",
			key:    DetailKey("orders", "o1"),
			prefix: DetailKey("orders", "o1"),
			want:   true,
		},
		{
			name:   "longer prefix never matches shorter key",
			key:    TypePrefix("orders"),
			prefix: DetailKey("orders", "o1"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
				t.Errorf("HasPrefix(%q, %q) = %v, want %v", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}
