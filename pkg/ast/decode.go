package ast

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/xplshn/mpc/pkg/token"
)

func decodeAs[T any](data []byte) (interface{}, error) {
	var d T
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

var decoders = map[NodeType]func([]byte) (interface{}, error){
	Int:      decodeAs[IntNode],
	Real:     decodeAs[RealNode],
	Ident:    decodeAs[IdentNode],
	Index:    decodeAs[IndexNode],
	Call:     decodeAs[CallNode],
	Unary:    decodeAs[UnaryNode],
	Binary:   decodeAs[BinaryNode],
	Assign:   decodeAs[AssignNode],
	Compound: decodeAs[CompoundNode],
	If:       decodeAs[IfNode],
	While:    decodeAs[WhileNode],
	Readln:   decodeAs[ReadlnNode],
	Writeln:  decodeAs[WritelnNode],
}

// UnmarshalJSON decodes {"kind": ..., "pos": ..., <fields of kind>}.
func (n *Node) UnmarshalJSON(data []byte) error {
	var env struct {
		Kind string    `json:"kind"`
		Pos  token.Pos `json:"pos"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	nt, ok := KindMap[env.Kind]
	if !ok {
		return fmt.Errorf("ast: %s: unknown node kind %q", env.Pos, env.Kind)
	}
	d, err := decoders[nt](data)
	if err != nil {
		return fmt.Errorf("ast: %s: %s: %w", env.Pos, nt, err)
	}
	n.Type, n.Pos, n.Data = nt, env.Pos, d
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (n *Node) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(struct {
		Kind string    `json:"kind"`
		Pos  token.Pos `json:"pos"`
	}{n.Type.String(), n.Pos})
	if err != nil {
		return nil, err
	}
	if len(body) <= 2 {
		return head, nil
	}
	// Splice the two objects: drop head's closing brace and body's opening one.
	out := append(head[:len(head)-1:len(head)-1], ',')
	return append(out, body[1:]...), nil
}

// UnmarshalJSON defaults an omitted class to Scalar.
func (d *Desc) UnmarshalJSON(data []byte) error {
	type raw Desc
	r := raw{Class: token.Scalar}
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*d = Desc(r)
	return nil
}

// Decode reads one program and checks that every node sits where its kind
// belongs.
func Decode(r io.Reader) (*Program, error) {
	var p Program
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("ast: decode program: %w", err)
	}
	if err := Check(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Check validates the shape of p.
func Check(p *Program) error {
	decls := func(list []VarDecl) error {
		for _, d := range list {
			if len(d.Names) == 0 {
				return fmt.Errorf("ast: %s: declaration without names", d.Pos)
			}
			if d.Type.Class == token.Vector && d.Type.Len() < 1 {
				return fmt.Errorf("ast: %s: vector bounds %d..%d are empty", d.Pos, d.Type.Lower, d.Type.Upper)
			}
		}
		return nil
	}
	if err := decls(p.Vars); err != nil {
		return err
	}
	for i := range p.Routines {
		r := &p.Routines[i]
		if r.Name == "" {
			return fmt.Errorf("ast: %s: routine without a name", r.Pos)
		}
		if err := decls(r.Params); err != nil {
			return err
		}
		if err := decls(r.Vars); err != nil {
			return err
		}
		if err := checkStmts(r.Body); err != nil {
			return err
		}
	}
	return checkStmts(p.Body)
}

func checkStmts(list []*Node) error {
	for _, s := range list {
		if err := checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func checkStmt(n *Node) error {
	if n == nil {
		return fmt.Errorf("ast: missing statement")
	}
	switch d := n.Data.(type) {
	case AssignNode:
		if d.Target == nil || (d.Target.Type != Ident && d.Target.Type != Index) {
			return fmt.Errorf("ast: %s: assignment target must be an identifier or an indexed vector", n.Pos)
		}
		if err := checkExpr(d.Target); err != nil {
			return err
		}
		return checkExpr(d.Value)
	case CallNode:
		return checkExprs(d.Args)
	case CompoundNode:
		return checkStmts(d.Body)
	case IfNode:
		if err := checkExpr(d.Cond); err != nil {
			return err
		}
		if err := checkStmt(d.Then); err != nil {
			return err
		}
		if d.Else != nil {
			return checkStmt(d.Else)
		}
		return nil
	case WhileNode:
		if err := checkExpr(d.Cond); err != nil {
			return err
		}
		return checkStmt(d.Body)
	case ReadlnNode:
		return checkExprs(d.Args)
	case WritelnNode:
		return checkExprs(d.Args)
	}
	return fmt.Errorf("ast: %s: %s is not a statement", n.Pos, n.Type)
}

func checkExprs(list []*Node) error {
	for _, e := range list {
		if err := checkExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func checkExpr(n *Node) error {
	if n == nil {
		return fmt.Errorf("ast: missing expression")
	}
	switch d := n.Data.(type) {
	case IntNode, RealNode, IdentNode:
		return nil
	case IndexNode:
		return checkExpr(d.Index)
	case CallNode:
		return checkExprs(d.Args)
	case UnaryNode:
		if d.Op != token.Add && d.Op != token.Sub {
			return fmt.Errorf("ast: %s: %q is not a unary operator", n.Pos, d.Op)
		}
		return checkExpr(d.Expr)
	case BinaryNode:
		if err := checkExpr(d.Left); err != nil {
			return err
		}
		return checkExpr(d.Right)
	}
	return fmt.Errorf("ast: %s: %s is not an expression", n.Pos, n.Type)
}
