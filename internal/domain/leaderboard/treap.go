package leaderboard

// Treap ordered by a caller-supplied rank comparator. In-order traversal
// yields the board from best to worst. Priorities come from a splitmix64
// sequence so the shape is deterministic for a given insertion history.

type node[E any] struct {
	item  E
	prio  uint64
	left  *node[E]
	right *node[E]
	size  int
}

func nsize[E any](n *node[E]) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix[E any](n *node[E]) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight[E any](y *node[E]) *node[E] {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft[E any](x *node[E]) *node[E] {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// before reports whether a ranks strictly ahead of b.
type before[E any] func(a, b E) bool

func insert[E any](n *node[E], item E, prio uint64, less before[E]) *node[E] {
	if n == nil {
		return &node[E]{item: item, prio: prio, size: 1}
	}
	if less(item, n.item) {
		n.left = insert(n.left, item, prio, less)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, item, prio, less)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// remove deletes the node equal to item. Equality means neither ranks ahead
// of the other, which the comparators guarantee only for the same key.
func remove[E any](n *node[E], item E, less before[E]) *node[E] {
	if n == nil {
		return nil
	}
	switch {
	case less(item, n.item):
		n.left = remove(n.left, item, less)
	case less(n.item, item):
		n.right = remove(n.right, item, less)
	default:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, item, less)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, item, less)
		}
	}
	fix(n)
	return n
}

// removeLast drops the worst ranked node and returns it.
func removeLast[E any](n *node[E]) (*node[E], E) {
	if n.right == nil {
		return n.left, n.item
	}
	var last E
	n.right, last = removeLast(n.right)
	fix(n)
	return n, last
}

// position returns the 1-based position of item.
func position[E any](n *node[E], item E, less before[E]) int {
	pos := 0
	for n != nil {
		switch {
		case less(item, n.item):
			n = n.left
		case less(n.item, item):
			pos += nsize(n.left) + 1
			n = n.right
		default:
			return pos + nsize(n.left) + 1
		}
	}
	return 0
}

func collect[E any](n *node[E], out *[]E) {
	if n == nil {
		return
	}
	collect(n.left, out)
	*out = append(*out, n.item)
	collect(n.right, out)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
