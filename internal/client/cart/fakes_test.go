package cart

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

type fakeRemote struct {
	mu        sync.Mutex
	carts     map[string][]models.CartItem
	AddErr    error
	SetErr    error
	RemoveErr error
	ClearErr  error
	ListErr   error
	failAdd   map[string]bool
	calls     []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{carts: map[string][]models.CartItem{}, failAdd: map[string]bool{}}
}

func (f *fakeRemote) List(_ context.Context, userID string) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return slices.Clone(f.carts[userID]), nil
}

func (f *fakeRemote) AddOrIncrement(_ context.Context, userID string, item models.CartItem, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("add:%s:%d", item.ProductID, qty))
	if f.AddErr != nil {
		return f.AddErr
	}
	if f.failAdd[item.ProductID] {
		return common.ErrTransientNetwork
	}
	cart := f.carts[userID]
	for i := range cart {
		if cart[i].ProductID == item.ProductID {
			item.Quantity = cart[i].Quantity + qty
			cart[i] = item
			return nil
		}
	}
	item.Quantity = qty
	f.carts[userID] = append(cart, item)
	return nil
}

func (f *fakeRemote) SetQuantity(_ context.Context, userID, productID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("set:%s:%d", productID, qty))
	if f.SetErr != nil {
		return f.SetErr
	}
	cart := f.carts[userID]
	for i := range cart {
		if cart[i].ProductID == productID {
			if qty < 1 {
				f.carts[userID] = slices.Delete(cart, i, i+1)
			} else {
				cart[i].Quantity = qty
			}
			return nil
		}
	}
	return nil
}

func (f *fakeRemote) Remove(_ context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove:"+productID)
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	f.carts[userID] = slices.DeleteFunc(f.carts[userID], func(it models.CartItem) bool {
		return it.ProductID == productID
	})
	return nil
}

func (f *fakeRemote) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "clear")
	if f.ClearErr != nil {
		return f.ClearErr
	}
	delete(f.carts, userID)
	return nil
}

func (f *fakeRemote) writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "list" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) quantities(userID string) map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, it := range f.carts[userID] {
		out[it.ProductID] = it.Quantity
	}
	return out
}

type fakeLocal struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{data: map[string][]byte{}}
}

func (f *fakeLocal) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeLocal) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeLocal) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeLocal) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

type fakeSource struct {
	mu        sync.Mutex
	identity  models.Identity
	listeners []func(prev, next models.Identity)
}

func (s *fakeSource) Identity() models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *fakeSource) SubscribeIdentity(fn func(prev, next models.Identity)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = nil
	}
}

func (s *fakeSource) set(next models.Identity) {
	s.mu.Lock()
	prev := s.identity
	s.identity = next
	fns := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(prev, next)
	}
}
