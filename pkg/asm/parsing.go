package asm

import (
	"fmt"
	"io"
	"os"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Parser combinators

// Each combinator below matches either a whole statement (A instruction, C
// instruction, label declaration) or one of its pieces (destination,
// computation, jump mnemonics). Comments can appear at the start of a line
// or trailing after a statement and are dropped once the AST is walked.

// ast is the root AST builder every combinator below registers against.
var ast = pc.NewAST("assembler", 0)

var (
	// pProgram matches a whole source file: any mix of comments and statements.
	pProgram = ast.ManyUntil("program", nil, ast.OrdChoice("item", nil, pComment, pInstruction), pc.End())

	// pInstruction matches any one of the three statement kinds.
	pInstruction = ast.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	// pComment matches a "// ..." trailing comment.
	pComment = ast.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	// pAInst matches "@" followed by a raw address, built-in, or label.
	pAInst = ast.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	// pLabelDecl matches "(NAME)".
	pLabelDecl = ast.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	// pCInst matches an optional "dest=" prefix, a mandatory comp, and an
	// optional ";jump" suffix.
	pCInst = ast.And("c-inst", nil,
		ast.Maybe("maybe-assign", nil, ast.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp,
		ast.Maybe("maybe-goto", nil, ast.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// pLabel matches either an integer literal or a symbol. A symbol is any
	// run of letters, digits, and "_.$:" that does not start with a digit.
	pLabel = ast.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// pDest matches a destination mnemonic. Longer combinations are listed
	// before their shorter prefixes so the longest match wins.
	pDest = ast.OrdChoice("dest", nil,
		pc.Atom("AMD", "AMD"),
		pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// pComp matches a computation mnemonic. Multi-character forms precede
	// their single-character prefixes for the same longest-match reason.
	pComp = ast.OrdChoice("comp", nil,
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		pc.Atom("0", "0"), pc.Atom("1", "1"), pc.Atom("-1", "-1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// pJump matches a jump mnemonic.
	pJump = ast.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns Hack assembly source text into a Program. Feature flags
// (read from the environment) help inspect the raw parse tree while
// debugging:
//   - PARSEC_DEBUG: verbose logging of which combinator matched what
//   - EXPORT_AST: dumps a Graphviz rendering of the AST to DEBUG_FOLDER
//   - PRINT_AST: pretty-prints the AST to stdout
type Parser struct{ reader io.Reader }

// NewParser wraps an io.Reader positioned at the start of an assembly file.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse runs the full pipeline: read source, build the parse tree, then
// walk it into a Program.
func (p *Parser) Parse() (Program, error) {
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

	root, _ := ast.Parsewith(pProgram, pc.NewScanner(source))

	if dir := os.Getenv("EXPORT_AST"); dir != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(ast.Dotstring(`"Assembler AST"`)))
		}
	}
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}

	return root, root != nil
}

// FromAST walks the root "program" node depth-first and builds the
// corresponding Program, skipping comment nodes entirely.
func (p *Parser) FromAST(root pc.Queryable) (Program, error) {
	if root == nil || root.GetName() != "program" {
		return nil, fmt.Errorf("expected node 'program', found a malformed or missing tree")
	}

	program := Program{}
	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "a-inst":
			stmt, err := p.HandleAInst(child)
			if err != nil {
				return nil, err
			}
			program = append(program, stmt)

		case "c-inst":
			stmt, err := p.HandleCInst(child)
			if err != nil {
				return nil, err
			}
			program = append(program, stmt)

		case "label-decl":
			stmt, err := p.HandleLabelDecl(child)
			if err != nil {
				return nil, err
			}
			program = append(program, stmt)

		case "comment":
			continue

		default:
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}
	}

	return program, nil
}

// HandleAInst converts an "a-inst" subtree to an AInstruction.
func (Parser) HandleAInst(inst pc.Queryable) (Statement, error) {
	if inst.GetName() != "a-inst" {
		return nil, fmt.Errorf("expected node 'a-inst', found %s", inst.GetName())
	}

	symbol := inst.GetChildren()[1]
	if symbol.GetName() != "INT" && symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL' or 'INT', got %s", symbol.GetName())
	}

	return AInstruction{Location: symbol.GetValue()}, nil
}

// HandleCInst converts a "c-inst" subtree to a CInstruction.
func (Parser) HandleCInst(inst pc.Queryable) (Statement, error) {
	if inst.GetName() != "c-inst" {
		return nil, fmt.Errorf("expected node 'c-inst', found %s", inst.GetName())
	}

	assign, comp, goto_ := inst.GetChildren()[0], inst.GetChildren()[1], inst.GetChildren()[2]

	stmt := CInstruction{Comp: comp.GetValue()}
	if assign.GetName() == "assign" && len(assign.GetChildren()) == 2 {
		stmt.Dest = assign.GetChildren()[0].GetValue()
	}
	if goto_.GetName() == "goto" && len(goto_.GetChildren()) == 2 {
		stmt.Jump = goto_.GetChildren()[1].GetValue()
	}

	return stmt, nil
}

// HandleLabelDecl converts a "label-decl" subtree to a LabelDecl.
func (Parser) HandleLabelDecl(decl pc.Queryable) (Statement, error) {
	if decl.GetName() != "label-decl" {
		return nil, fmt.Errorf("expected node 'label-decl', found %s", decl.GetName())
	}

	symbol := decl.GetChildren()[1]
	if symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL', got %s", symbol.GetName())
	}

	return LabelDecl{Name: symbol.GetValue()}, nil
}
