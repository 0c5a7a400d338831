package storage

import (
	"container/list"
	"sync"

	"github.com/airship/tripstore/internal/core/domain"
)

// orderCache is a bounded LRU over recent order lookups. It only absorbs
// repeated point reads; the repository's mutating operations invalidate
// entries before returning, so within one process a read after a write always
// sees the write. Orders are copied on the way in and out.
type orderCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[int64]*list.Element
}

type cacheEntry struct {
	id    int64
	order domain.Order
}

func newOrderCache(capacity int) *orderCache {
	return &orderCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[int64]*list.Element, capacity),
	}
}

func (c *orderCache) get(orderID int64) (*domain.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[orderID]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return cloneOrder(elem.Value.(*cacheEntry).order), true
}

func (c *orderCache) put(order *domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[order.ID]; ok {
		c.ll.MoveToFront(elem)
		elem.Value.(*cacheEntry).order = *cloneOrder(*order)
		return
	}
	elem := c.ll.PushFront(&cacheEntry{id: order.ID, order: *cloneOrder(*order)})
	c.items[order.ID] = elem
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).id)
	}
}

func (c *orderCache) remove(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[orderID]; ok {
		c.ll.Remove(elem)
		delete(c.items, orderID)
	}
}

func cloneOrder(o domain.Order) *domain.Order {
	clone := o
	clone.Details = make([]domain.OrderDetail, len(o.Details))
	copy(clone.Details, o.Details)
	return &clone
}
