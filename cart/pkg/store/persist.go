package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Alturino/storefront/cart/pkg/response"
)

const KeyPrefix = "cart-store:"

// SnapshotKey is the storage key of a session's snapshot.
func SnapshotKey(session string) string {
	return KeyPrefix + session
}

// Snapshot is the durable part of the store. Loading flags and coupon
// lists are deliberately absent.
type Snapshot struct {
	Cart            *response.Cart `json:"cart"`
	DeliveryPincode *string        `json:"delivery_pincode"`
	PaymentMethod   *string        `json:"payment_method"`
}

type Persister interface {
	// Load returns ok=false when nothing was saved under key.
	Load(c context.Context, key string) (snapshot Snapshot, ok bool, err error)
	Save(c context.Context, key string, snapshot Snapshot) error
}

// MemoryPersister keeps JSON encoded snapshots in process memory.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: map[string][]byte{}}
}

func (p *MemoryPersister) Load(_ context.Context, key string) (Snapshot, bool, error) {
	p.mu.RLock()
	b, ok := p.data[key]
	p.mu.RUnlock()
	if !ok {
		return Snapshot{}, false, nil
	}
	snapshot := Snapshot{}
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed decoding snapshot key=%s with error=%w", key, err)
	}
	return snapshot, true, nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, snapshot Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed encoding snapshot key=%s with error=%w", key, err)
	}
	p.mu.Lock()
	p.data[key] = b
	p.mu.Unlock()
	return nil
}
