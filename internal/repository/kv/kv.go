// Package kv persists the domain collections as whole JSON documents in a
// key-value store, one key per collection. Every mutation is a
// read-modify-write of the entire document, run through the store's
// compare-and-swap Update so concurrent writers cannot lose each other's
// changes.
package kv

// Fixed store keys. Existing deployments already persist under these names,
// so they must not change.
const (
	keyAccounts   = "accounts"
	keyCategories = "categories"
	keyUser       = "user_credentials"
)

// Repository implements the repository interfaces over a Store.
type Repository struct {
	store     Store
	namespace string
}

// New constructs a Repository. namespace, when non-empty, prefixes every key
// so several deployments can share one store.
func New(store Store, namespace string) *Repository {
	return &Repository{store: store, namespace: namespace}
}

func (r *Repository) key(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + ":" + name
}
