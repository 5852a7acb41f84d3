// Package store holds the persisted category feeds: an insertion-ordered
// keyed collection plus the RSS document loader and writer around it.
package store

import (
	"container/list"

	"kkfeed/internal/models"
)

// Ordered is an item collection keyed by link that keeps a significant order.
// Lookup, insertion at either end, move-to-front and in-place update are O(1).
type Ordered struct {
	order *list.List
	index map[string]*list.Element
}

func NewOrdered() *Ordered {
	return &Ordered{order: list.New(), index: make(map[string]*list.Element)}
}

// OrderedFrom builds a collection from items in order. A repeated link
// replaces the earlier item, taking the later position.
func OrderedFrom(items []models.Item) *Ordered {
	o := NewOrdered()
	for _, it := range items {
		o.Remove(it.Link)
		o.PushBack(it)
	}
	return o
}

func (o *Ordered) Len() int { return o.order.Len() }

func (o *Ordered) Get(link string) (models.Item, bool) {
	el, ok := o.index[link]
	if !ok {
		return models.Item{}, false
	}
	return el.Value.(models.Item), true
}

// PushFront inserts it as the first item, replacing any item with the same link.
func (o *Ordered) PushFront(it models.Item) {
	if el, ok := o.index[it.Link]; ok {
		el.Value = it
		o.order.MoveToFront(el)
		return
	}
	o.index[it.Link] = o.order.PushFront(it)
}

// PushBack appends it, replacing any item with the same link in place.
func (o *Ordered) PushBack(it models.Item) {
	if el, ok := o.index[it.Link]; ok {
		el.Value = it
		return
	}
	o.index[it.Link] = o.order.PushBack(it)
}

// Set replaces the stored item for it.Link without moving it.
// It reports false when the link is unknown.
func (o *Ordered) Set(it models.Item) bool {
	el, ok := o.index[it.Link]
	if !ok {
		return false
	}
	el.Value = it
	return true
}

// MoveToFront makes link the first item. It reports false when the link is unknown.
func (o *Ordered) MoveToFront(link string) bool {
	el, ok := o.index[link]
	if !ok {
		return false
	}
	o.order.MoveToFront(el)
	return true
}

func (o *Ordered) Remove(link string) bool {
	el, ok := o.index[link]
	if !ok {
		return false
	}
	o.order.Remove(el)
	delete(o.index, link)
	return true
}

// Items returns a snapshot of the collection in order.
func (o *Ordered) Items() []models.Item {
	out := make([]models.Item, 0, o.order.Len())
	for el := o.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(models.Item))
	}
	return out
}
