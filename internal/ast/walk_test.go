package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/a7c/internal/span"
)

func intLit(v int64) *Node {
	return IntLiteral(v, span.New(1, 1, 1))
}

func TestChildrenEnumeration(t *testing.T) {
	n := &Node{
		Kind:  BINARY,
		Left:  intLit(1),
		Right: intLit(2),
	}
	edges := Children(n, nil)
	require.Len(t, edges, 2)
	assert.Equal(t, SlotLeft, edges[0].Slot)
	assert.Equal(t, SlotRight, edges[1].Slot)
	assert.Same(t, n.Left, edges[0].Get())
}

func TestEdgeSetSingleAndList(t *testing.T) {
	block := &Node{Kind: BLOCK, Statements: []*Node{intLit(1), intLit(2)}}
	edges := Children(block, nil)
	require.Len(t, edges, 2)

	replacement := intLit(99)
	edges[1].Set(replacement)
	assert.Same(t, replacement, block.Statements[1])

	unary := &Node{Kind: UNARY, Operand: intLit(5)}
	edge := Children(unary, nil)[0]
	edge.Set(replacement)
	assert.Same(t, replacement, unary.Operand)
}

func TestWalkOrder(t *testing.T) {
	root := &Node{
		Kind: BLOCK,
		Statements: []*Node{
			{Kind: BINARY, Left: intLit(1), Right: intLit(2)},
			intLit(3),
		},
	}

	var visited []int64
	Walk(root, func(n *Node) {
		if n.Kind == LITERAL {
			visited = append(visited, n.IntVal)
		}
	})
	assert.Equal(t, []int64{1, 2, 3}, visited, "pre-order, left to right")
}

func TestTransformPostOrderReplacesThroughParent(t *testing.T) {
	root := &Node{
		Kind:  BINARY,
		BinOp: OpAdd,
		Left:  intLit(1),
		Right: &Node{Kind: BINARY, BinOp: OpAdd, Left: intLit(2), Right: intLit(3)},
	}

	result := TransformPostOrder(root, func(n *Node) *Node {
		if n.Kind == BINARY && n.Left.Kind == LITERAL && n.Right.Kind == LITERAL {
			return intLit(n.Left.IntVal + n.Right.IntVal)
		}
		return n
	})

	require.Equal(t, LITERAL, result.Kind, "root replacement must propagate")
	assert.Equal(t, int64(6), result.IntVal)
}

func TestTransformDeepTreeIterative(t *testing.T) {
	// A left-leaning chain far deeper than any reasonable call stack
	// budget; the explicit stack must not care.
	depth := 100000
	root := intLit(0)
	for i := 0; i < depth; i++ {
		root = &Node{Kind: UNARY, UnOp: OpNeg, Operand: root}
	}

	count := 0
	Walk(root, func(n *Node) { count++ })
	assert.Equal(t, depth+1, count)

	result := TransformPostOrder(root, func(n *Node) *Node { return n })
	assert.Same(t, root, result)
}
