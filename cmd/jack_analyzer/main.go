package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"hacktoolchain.dev/n2t/pkg/jack"
)

var Description = strings.ReplaceAll(`
The Jack Syntax Analyzer tokenizes and parses programs written in the Jack language
and emits, for each source file, the XML rendering of its parse tree. It stops at
the syntax tree: no type checking, scope resolution, or code generation is done.
`, "\n", " ")

var JackAnalyzer = cli.New(Description).
	WithArg(cli.NewArg("inputs", "A .jack file, or a directory containing them").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

// stem returns a file's base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveInputs expands a single directory argument into every ".jack" file
// it directly contains (no recursion); any other argument list is used
// as-is, each entry assumed to already be a .jack file path.
func resolveInputs(args []string) ([]string, error) {
	if len(args) != 1 {
		return args, nil
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return args, nil
	}

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jack" {
			continue
		}
		files = append(files, filepath.Join(args[0], entry.Name()))
	}
	return files, nil
}

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	inputs, err := resolveInputs(args)
	if err != nil {
		fmt.Printf("ERROR: Unable to resolve input files: %s\n", err)
		return -1
	}
	if len(inputs) == 0 {
		fmt.Printf("ERROR: No .jack files found among the given inputs\n")
		return -1
	}

	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}
		if len(strings.TrimSpace(string(content))) == 0 {
			continue
		}

		tokenizer := jack.NewTokenizer(string(content))
		tokens, err := tokenizer.Tokenize()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'tokenizing' pass for %q: %s\n", input, err)
			return -1
		}

		parser := jack.NewParser(tokens)
		tree, err := parser.CompileClass()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass for %q: %s\n", input, err)
			return -1
		}

		dir := filepath.Dir(input)
		outPath := filepath.Join(dir, fmt.Sprintf("%sfromSyntaxAnalyzer.xml", stem(input)))
		if err := os.WriteFile(outPath, []byte(jack.WriteXML(tree)), 0o644); err != nil {
			fmt.Printf("ERROR: Unable to write output file: %s\n", err)
			return -1
		}
	}

	return 0
}

func main() { os.Exit(JackAnalyzer.Run(os.Args, os.Stdout)) }
