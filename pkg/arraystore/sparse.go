package arraystore

import (
	"objmodel/pkg/prop"
	"objmodel/pkg/value"
)

// node is a treap node. add is a key delta pending for the whole subtree,
// this node included; it is pushed down before the node is inspected.
type node struct {
	key         uint32
	prio        uint32
	size        uint32
	add         int64
	left, right *node
	slot        uint32
	attrs       prop.Attributes
}

func size(n *node) uint32 {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node) push() {
	if n.add == 0 {
		return
	}
	n.key = uint32(int64(n.key) + n.add)
	if n.left != nil {
		n.left.add += n.add
	}
	if n.right != nil {
		n.right.add += n.add
	}
	n.add = 0
}

func (n *node) update() { n.size = 1 + size(n.left) + size(n.right) }

// split returns the nodes with key < k and key >= k.
func split(t *node, k uint32) (*node, *node) {
	if t == nil {
		return nil, nil
	}
	t.push()
	if t.key < k {
		l, r := split(t.right, k)
		t.right = l
		t.update()
		return t, r
	}
	l, r := split(t.left, k)
	t.left = r
	t.update()
	return l, t
}

// merge joins a and b; every key in a is below every key in b.
func merge(a, b *node) *node {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	if a.prio > b.prio {
		a.push()
		a.right = merge(a.right, b)
		a.update()
		return a
	}
	b.push()
	b.left = merge(a, b.left)
	b.update()
	return b
}

// tree is the sparse representation: a treap keyed by index whose nodes
// point into a side value array with a free-slot list.
type tree struct {
	root   *node
	values []value.Value
	free   []uint32
	seed   uint32
}

func newTree() *tree { return &tree{seed: 0x9E3779B9} }

func (t *tree) rand() uint32 {
	x := t.seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	t.seed = x
	return x
}

func (t *tree) count() uint32 { return size(t.root) }

func (t *tree) find(k uint32) *node {
	n := t.root
	for n != nil {
		n.push()
		switch {
		case k == n.key:
			return n
		case k < n.key:
			n = n.left
		default:
			n = n.right
		}
	}
	return nil
}

func (t *tree) allocSlot(v value.Value) uint32 {
	if n := len(t.free); n > 0 {
		slot := t.free[n-1]
		t.free = t.free[:n-1]
		t.values[slot] = v
		return slot
	}
	t.values = append(t.values, v)
	return uint32(len(t.values) - 1)
}

func (t *tree) freeSlot(slot uint32) {
	t.values[slot] = value.Undefined
	t.free = append(t.free, slot)
}

// insert adds k, which must not be present.
func (t *tree) insert(k uint32, v value.Value, attrs prop.Attributes) *node {
	n := &node{key: k, prio: t.rand(), size: 1, slot: t.allocSlot(v), attrs: attrs}
	l, r := split(t.root, k)
	t.root = merge(merge(l, n), r)
	return n
}

// remove unlinks k and frees its slot.
func (t *tree) remove(k uint32) bool {
	l, r := split(t.root, k)
	m, r := split(r, k+1)
	t.root = merge(l, r)
	if m == nil {
		return false
	}
	t.freeSlot(m.slot)
	return true
}

// shift adds delta to every key >= from. Shifting the whole tree only
// touches the root.
func (t *tree) shift(from uint32, delta int64) {
	if t.root == nil {
		return
	}
	if from == 0 {
		t.root.add += delta
		return
	}
	l, r := split(t.root, from)
	if r != nil {
		r.add += delta
	}
	t.root = merge(l, r)
}

// cut detaches and returns every node with key >= from.
func (t *tree) cut(from uint32) *node {
	l, r := split(t.root, from)
	t.root = l
	return r
}

// graft reattaches a subtree whose keys are all above the current tree.
func (t *tree) graft(sub *node) { t.root = merge(t.root, sub) }

// nth returns the node holding the k-th smallest key.
func (t *tree) nth(k uint32) *node {
	n := t.root
	for n != nil {
		n.push()
		ls := size(n.left)
		switch {
		case k < ls:
			n = n.left
		case k == ls:
			return n
		default:
			k -= ls + 1
			n = n.right
		}
	}
	return nil
}

// walk visits sub in key order until fn returns false.
func walk(sub *node, fn func(*node) bool) bool {
	var stack []*node
	n := sub
	for n != nil || len(stack) > 0 {
		for n != nil {
			n.push()
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return false
		}
		n = n.right
	}
	return true
}
