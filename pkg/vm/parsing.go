package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser combinators

// Each combinator below matches one VM operation or one of its pieces. A
// module is any mix of comments and operations, in any order.

// ast is the root AST builder every combinator below registers against.
var ast = pc.NewAST("virtual_machine", 0)

var (
	// pModule matches a whole source file.
	pModule = ast.ManyUntil("module", nil, ast.OrdChoice("node", nil, pComment, pOperation), pc.End())

	// pComment matches a "// ..." trailing comment.
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))
	// pOperation matches any one of the seven operation kinds.
	pOperation = ast.OrdChoice("operation", nil,
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	// pMemoryOp matches "{push|pop} {segment} {index}".
	pMemoryOp = ast.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// pArithmeticOp matches one of the nine arithmetic/logical mnemonics.
	pArithmeticOp = ast.And("arithmetic_op", nil, pArithOpType)

	// pLabelDecl matches "label {symbol}".
	pLabelDecl = ast.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// pGotoOp matches "{goto|if-goto} {symbol}".
	pGotoOp = ast.And("goto_op", nil, pJumpType, pIdent)

	// pFuncDecl matches "function {name} {n_locals}".
	pFuncDecl = ast.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// pFunCallOp matches "call {name} {n_args}".
	pFunCallOp = ast.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// pReturnOp matches the bare "return" keyword.
	pReturnOp = ast.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// pIdent matches a label or function identifier: a run of letters,
	// digits, and "_.$:" that does not start with a digit.
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	// pMemOpType matches "push" or "pop".
	pMemOpType = ast.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))
	// pSegment matches one of the eight named memory segments.
	pSegment = ast.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	// pArithOpType matches one of the nine arithmetic/logical mnemonics.
	pArithOpType = ast.OrdChoice("operations", nil,
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	// pJumpType matches "goto" or "if-goto".
	pJumpType = ast.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns VM source text into a Module. Feature flags (read from the
// environment) help inspect the raw parse tree while debugging:
//   - PARSEC_DEBUG: verbose logging of which combinator matched what
//   - EXPORT_AST: dumps a Graphviz rendering of the AST to DEBUG_FOLDER
//   - PRINT_AST: pretty-prints the AST to stdout
//
// nextIndex hands out the monotonically increasing Index carried by every
// label, goto and call operation; the lowerer uses a call's Index to keep
// its return-address label unique across the whole module.
type Parser struct {
	reader    io.Reader
	nextIndex uint64
}

// NewParser wraps an io.Reader positioned at the start of a VM file.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse runs the full pipeline: read source, build the parse tree, then
// walk it into a Module.
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from source: %s", err)
	}

	tree, ok := p.FromSource(content)
	if !ok {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(tree)
}

// FromSource runs the combinators over the raw source bytes and returns the
// resulting parse tree.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	root, _ := ast.Parsewith(pModule, pc.NewScanner(source))

	if dir := os.Getenv("EXPORT_AST"); dir != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring(`"VM AST"`)))
		}
	}
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, root != nil
}

// FromAST walks the root "module" node depth-first and builds the
// corresponding Module, skipping comment nodes entirely.
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	if root == nil || root.GetName() != "module" {
		return nil, fmt.Errorf("expected node 'module', found a malformed or missing tree")
	}

	module := Module{}
	for _, child := range root.GetChildren() {
		var op Operation
		var err error

		switch child.GetName() {
		case "memory_op":
			op, err = p.HandleMemoryOp(child)
		case "arithmetic_op":
			op, err = p.HandleArithmeticOp(child)
		case "label_decl":
			op, err = p.HandleLabelDecl(child)
		case "goto_op":
			op, err = p.HandleGotoOp(child)
		case "func_decl":
			op, err = p.HandleFuncDecl(child)
		case "return_op":
			op, err = p.HandleReturnOp(child)
		case "func_call":
			op, err = p.HandleFuncCall(child)
		case "comment":
			continue
		default:
			err = fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		if err != nil {
			return nil, err
		}
		module = append(module, op)
	}

	return module, nil
}

// HandleMemoryOp converts a "memory_op" node to a MemoryOp.
func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "memory_op" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("malformed 'memory_op' node")
	}

	operation := OperationType(node.GetChildren()[0].GetValue())
	segment := SegmentType(node.GetChildren()[1].GetValue())
	offset, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid offset in memory operation: %s", err)
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// HandleArithmeticOp converts an "arithmetic_op" node to an ArithmeticOp.
func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "arithmetic_op" || len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("malformed 'arithmetic_op' node")
	}

	return ArithmeticOp{Operation: ArithOpType(node.GetChildren()[0].GetValue())}, nil
}

// HandleLabelDecl converts a "label_decl" node to a LabelDecl, assigning it
// the next op index.
func (p *Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "label_decl" || len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("malformed 'label_decl' node")
	}

	decl := LabelDecl{Name: node.GetChildren()[1].GetValue(), Index: p.nextIndex}
	p.nextIndex++
	return decl, nil
}

// HandleGotoOp converts a "goto_op" node to a GotoOp, assigning it the next
// op index.
func (p *Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "goto_op" || len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("malformed 'goto_op' node")
	}

	op := GotoOp{
		Jump:  JumpType(node.GetChildren()[0].GetValue()),
		Label: node.GetChildren()[1].GetValue(),
		Index: p.nextIndex,
	}
	p.nextIndex++
	return op, nil
}

// HandleFuncDecl converts a "func_decl" node to a FuncDecl.
func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_decl" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("malformed 'func_decl' node")
	}

	name := node.GetChildren()[1].GetValue()
	nLocals, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid local count in function declaration: %s", err)
	}

	return FuncDecl{Name: name, NLocals: uint16(nLocals)}, nil
}

// HandleReturnOp converts a "return_op" node to a ReturnOp.
func (Parser) HandleReturnOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "return_op" || len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("malformed 'return_op' node")
	}

	return ReturnOp{}, nil
}

// HandleFuncCall converts a "func_call" node to a FuncCallOp, assigning it
// the next op index.
func (p *Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_call" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("malformed 'func_call' node")
	}

	name := node.GetChildren()[1].GetValue()
	nArgs, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid argument count in function call: %s", err)
	}

	op := FuncCallOp{Name: name, NArgs: uint16(nArgs), Index: p.nextIndex}
	p.nextIndex++
	return op, nil
}
