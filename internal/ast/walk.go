package ast

// Slot names a child field of a Node, so that a traversal can write a
// replacement node back through its parent without recursion or
// reflection.
type Slot uint8

const (
	SlotNone Slot = iota

	// Single-node slots, in traversal order.
	SlotValue
	SlotBody
	SlotCondition
	SlotThen
	SlotElse
	SlotInit
	SlotUpdate
	SlotTarget
	SlotFunction
	SlotLeft
	SlotRight
	SlotOperand
	SlotPointer
	SlotObject
	SlotIndex
	SlotStart
	SlotEnd
	SlotIterable
	SlotThenExpr
	SlotElseExpr
	SlotReturnType
	SlotExplicitType
	SlotParamType
	SlotFieldType
	SlotElementType
	SlotTargetType
	SlotSize
	SlotStatement
	SlotLiteral
	SlotExpression

	// List slots.
	SlotDeclarations
	SlotStatements
	SlotParameters
	SlotGenericParams
	SlotArguments
	SlotFields
	SlotVariants
	SlotFieldInits
	SlotElements
	SlotCases
	SlotElseCase
	SlotPatterns
)

var singleSlots = [...]Slot{
	SlotValue, SlotBody, SlotCondition, SlotThen, SlotElse, SlotInit,
	SlotUpdate, SlotTarget, SlotFunction, SlotLeft, SlotRight, SlotOperand,
	SlotPointer, SlotObject, SlotIndex, SlotStart, SlotEnd, SlotIterable,
	SlotThenExpr, SlotElseExpr, SlotReturnType, SlotExplicitType,
	SlotParamType, SlotFieldType, SlotElementType, SlotTargetType,
	SlotSize, SlotStatement, SlotLiteral, SlotExpression,
}

var listSlots = [...]Slot{
	SlotDeclarations, SlotStatements, SlotParameters, SlotGenericParams,
	SlotArguments, SlotFields, SlotVariants, SlotFieldInits, SlotElements,
	SlotCases, SlotElseCase, SlotPatterns,
}

func (n *Node) single(s Slot) **Node {
	switch s {
	case SlotValue:
		return &n.Value
	case SlotBody:
		return &n.Body
	case SlotCondition:
		return &n.Condition
	case SlotThen:
		return &n.Then
	case SlotElse:
		return &n.Else
	case SlotInit:
		return &n.Init
	case SlotUpdate:
		return &n.Update
	case SlotTarget:
		return &n.Target
	case SlotFunction:
		return &n.Function
	case SlotLeft:
		return &n.Left
	case SlotRight:
		return &n.Right
	case SlotOperand:
		return &n.Operand
	case SlotPointer:
		return &n.Pointer
	case SlotObject:
		return &n.Object
	case SlotIndex:
		return &n.Index
	case SlotStart:
		return &n.Start
	case SlotEnd:
		return &n.End
	case SlotIterable:
		return &n.Iterable
	case SlotThenExpr:
		return &n.ThenExpr
	case SlotElseExpr:
		return &n.ElseExpr
	case SlotReturnType:
		return &n.ReturnType
	case SlotExplicitType:
		return &n.ExplicitType
	case SlotParamType:
		return &n.ParamType
	case SlotFieldType:
		return &n.FieldType
	case SlotElementType:
		return &n.ElementType
	case SlotTargetType:
		return &n.TargetType
	case SlotSize:
		return &n.Size
	case SlotStatement:
		return &n.Statement
	case SlotLiteral:
		return &n.Literal
	case SlotExpression:
		return &n.Expression
	}
	return nil
}

func (n *Node) list(s Slot) *[]*Node {
	switch s {
	case SlotDeclarations:
		return &n.Declarations
	case SlotStatements:
		return &n.Statements
	case SlotParameters:
		return &n.Parameters
	case SlotGenericParams:
		return &n.GenericParams
	case SlotArguments:
		return &n.Arguments
	case SlotFields:
		return &n.Fields
	case SlotVariants:
		return &n.Variants
	case SlotFieldInits:
		return &n.FieldInits
	case SlotElements:
		return &n.Elements
	case SlotCases:
		return &n.Cases
	case SlotElseCase:
		return &n.ElseCase
	case SlotPatterns:
		return &n.Patterns
	}
	return nil
}

// Edge is a non-owning back reference from a child to the parent slot
// holding it. Index is -1 for single-node slots.
type Edge struct {
	Parent *Node
	Slot   Slot
	Index  int
}

// Get returns the child currently stored in the edge's slot.
func (e Edge) Get() *Node {
	if e.Parent == nil {
		return nil
	}
	if e.Index < 0 {
		return *e.Parent.single(e.Slot)
	}
	return (*e.Parent.list(e.Slot))[e.Index]
}

// Set writes a replacement child through the edge.
func (e Edge) Set(child *Node) {
	if e.Parent == nil {
		return
	}
	if e.Index < 0 {
		*e.Parent.single(e.Slot) = child
		return
	}
	(*e.Parent.list(e.Slot))[e.Index] = child
}

// Children appends every non-nil child of n, with its back edge, to buf
// and returns the extended slice. List children follow single children,
// both in declaration order.
func Children(n *Node, buf []Edge) []Edge {
	if n == nil {
		return buf
	}
	for _, s := range singleSlots {
		if *n.single(s) != nil {
			buf = append(buf, Edge{Parent: n, Slot: s, Index: -1})
		}
	}
	for _, s := range listSlots {
		items := *n.list(s)
		for i, item := range items {
			if item != nil {
				buf = append(buf, Edge{Parent: n, Slot: s, Index: i})
			}
		}
	}
	return buf
}

// Walk visits every node reachable from root in pre-order using an
// explicit stack. The visitor must not mutate the tree shape.
func Walk(root *Node, visit func(*Node)) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	var edges []Edge
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)

		edges = Children(n, edges[:0])
		// Push in reverse so the first child is visited first.
		for i := len(edges) - 1; i >= 0; i-- {
			stack = append(stack, edges[i].Get())
		}
	}
}

// transformFrame is one entry of the post-order transform stack.
type transformFrame struct {
	node    *Node
	edge    Edge // zero edge for the root
	visited bool
}

// TransformPostOrder rewrites the tree bottom-up: children are processed
// before their parent, and a non-identical return value from transform
// replaces the node through its parent edge. Returns the (possibly
// replaced) root. The traversal is fully iterative.
func TransformPostOrder(root *Node, transform func(*Node) *Node) *Node {
	if root == nil {
		return nil
	}

	stack := []transformFrame{{node: root}}
	var edges []Edge
	for len(stack) > 0 {
		frame := &stack[len(stack)-1]

		if frame.visited {
			node, edge := frame.node, frame.edge
			stack = stack[:len(stack)-1]
			replacement := transform(node)
			if replacement != node {
				if edge.Parent != nil {
					edge.Set(replacement)
				} else {
					root = replacement
				}
			}
			continue
		}

		frame.visited = true
		edges = Children(frame.node, edges[:0])
		for i := len(edges) - 1; i >= 0; i-- {
			stack = append(stack, transformFrame{node: edges[i].Get(), edge: edges[i]})
		}
	}
	return root
}
