package schema

// FieldResult is the folded value of one object field.
type FieldResult[T any] struct {
	Name  string
	Value T
}

// Folder computes a value bottom-up over a schema tree. Scalar handles
// String, Number, Boolean, Enum and Opaque; Wrapper handles Optional,
// Nullable and Default.
type Folder[T any] interface {
	Scalar(n *Node) T
	Object(n *Node, fields []FieldResult[T]) T
	Array(n *Node, elem T) T
	Wrapper(n *Node, inner T) T
}

// Fold reduces n with f, children before parents. Object fields are folded
// in declaration order. A nil node folds to the zero value.
func Fold[T any](n *Node, f Folder[T]) T {
	var zero T
	if n == nil {
		return zero
	}
	switch n.kind {
	case KindObject:
		fields := make([]FieldResult[T], 0, len(n.fields))
		for _, fld := range n.fields {
			fields = append(fields, FieldResult[T]{Name: fld.Name, Value: Fold(fld.Node, f)})
		}
		return f.Object(n, fields)
	case KindArray:
		return f.Array(n, Fold(n.inner, f))
	case KindOptional, KindNullable, KindDefault:
		return f.Wrapper(n, Fold(n.inner, f))
	default:
		return f.Scalar(n)
	}
}

// Transform rebuilds a tree bottom-up. fn receives each node after its
// children have been rebuilt and returns its replacement, or nil to drop it.
// Dropped object fields are also removed from the required set; a dropped
// array element or wrapper child drops the parent.
func Transform(n *Node, fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	c := n.clone()
	switch n.kind {
	case KindObject:
		c.fields = make([]Field, 0, len(n.fields))
		for _, f := range n.fields {
			child := Transform(f.Node, fn)
			if child == nil {
				delete(c.required, f.Name)
				continue
			}
			c.fields = append(c.fields, Field{Name: f.Name, Node: child})
		}
	case KindArray, KindOptional, KindNullable, KindDefault:
		c.inner = Transform(n.inner, fn)
		if c.inner == nil {
			return nil
		}
	}
	return fn(c)
}
