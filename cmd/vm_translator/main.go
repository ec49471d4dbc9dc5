package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"hacktoolchain.dev/n2t/pkg/asm"
	"hacktoolchain.dev/n2t/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file, or a single
	// directory that gets shallow-scanned for every "*.vm" file it contains.
	WithArg(cli.NewArg("inputs", "One or more .vm files, or a directory containing them").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled assembly output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Prepends bootstrap code that sets SP and calls Sys.init").
		WithType(cli.TypeBool)).
	WithAction(Handler)

// stem returns a file's base name without its extension, used both as the
// translation-unit key in a vm.Program and as the prefix for that file's
// static variables.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveInputs expands a single directory argument into every ".vm" file
// it directly contains (no recursion); any other argument list is used
// as-is, each entry assumed to already be a .vm file path.
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
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".vm" {
			continue
		}
		files = append(files, filepath.Join(args[0], entry.Name()))
	}
	return files, nil
}

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	inputs, err := resolveInputs(args)
	if err != nil {
		fmt.Printf("ERROR: Unable to resolve input files: %s\n", err)
		return -1
	}
	if len(inputs) == 0 {
		fmt.Printf("ERROR: No .vm files found among the given inputs\n")
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation units
	// (the .vm files), keyed by file stem so the lowering pass can scope each
	// one's static variables and skip guard independently.
	program := vm.Program{}

	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		parser := vm.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
		program[stem(input)] = module
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	_, bootstrap := options["bootstrap"]
	if bootstrap {
		// Initializes the Stack Pointer and hands control to Sys.init, as the
		// very first instructions of the translated program.
		asmProgram = append(vm.Bootstrap(), asmProgram...)
	} else {
		// A program assembled without bootstrap code is expected to run to
		// completion on its own; append a halting loop so execution never
		// falls past the end of the translated instructions.
		asmProgram = append(asmProgram,
			asm.AInstruction{Location: "END_OF_FILE"}, asm.CInstruction{Comp: "0", Jump: "JMP"},
			asm.LabelDecl{Name: "END_OF_FILE"},
		)
	}

	// The translator's output is assembly text, not the binary pkg/hack
	// produces: that final stage belongs to hack_assembler alone.
	codegen := asm.NewCodeGenerator(asmProgram)
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
