// Command zen is the toolchain entry point: run or compile a .zen
// source file, disassemble compiled bytecode, or drop into an
// interactive REPL.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kristofer/zen/pkg/bytecode"
	"github.com/kristofer/zen/pkg/lowering"
	"github.com/kristofer/zen/pkg/parser"
	"github.com/kristofer/zen/pkg/stdlib"
	"github.com/kristofer/zen/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("zen version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		requireFile(2, "run")
		runFile(os.Args[2])
	case "compile":
		requireFile(2, "compile")
		outputFile := ""
		if len(os.Args) >= 4 {
			outputFile = os.Args[3]
		}
		compileFile(os.Args[2], outputFile)
	case "disassemble", "disasm":
		requireFile(2, "disassemble")
		disassembleFile(os.Args[2])
	default:
		runFile(os.Args[1])
	}
}

func requireFile(argc int, cmd string) {
	if len(os.Args) < argc+1 {
		fmt.Fprintf(os.Stderr, "Error: no file specified\n\nUsage: zen %s <file>\n", cmd)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("zen - a small dynamically-typed scripting language")
	fmt.Println("\nUsage:")
	fmt.Println("  zen                          Start interactive REPL")
	fmt.Println("  zen [file]                   Run a .zen source file")
	fmt.Println("  zen run <file>               Run a .zen source file")
	fmt.Println("  zen compile <in> [out]       Compile .zen source to .zbc bytecode")
	fmt.Println("  zen disassemble <file>       Disassemble a .zbc or .zen file")
	fmt.Println("  zen repl                     Start interactive REPL")
	fmt.Println("  zen version                  Show version")
	fmt.Println("  zen help                     Show this help")
	fmt.Println("\nFile Extensions:")
	fmt.Println("  .zen   Source code files (text)")
	fmt.Println("  .zbc   Compiled bytecode files (binary)")
}

func runFile(filename string) {
	if filepath.Ext(filename) == ".zbc" {
		runBytecodeFile(filename)
		return
	}
	prog := lowerSourceFile(filename)
	runProgram(prog)
}

func runBytecodeFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	prog, err := bytecode.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}
	runProgram(prog)
}

func runProgram(prog *bytecode.Program) {
	m := vm.New(os.Stdout)
	stdlib.Register(m, os.Stdout)
	if err := m.Run(prog); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

// lowerSourceFile reads, parses, and lowers a .zen file, printing
// diagnostics and exiting on any compile-time failure — spec.md §7's
// strict separation between a Bag of diagnostics and a fatal
// RuntimeError means the VM is never invoked when this step fails.
func lowerSourceFile(filename string) *bytecode.Program {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	p := parser.New(filename, string(data))
	mod := p.Parse()
	if p.Diagnostics().HasErrors() {
		for _, d := range p.Diagnostics().All() {
			fmt.Fprintln(os.Stderr, d)
		}
		os.Exit(1)
	}

	lw := lowering.New(bytecode.ModeInline, filepath.Dir(filename))
	prog := lw.Lower(mod)
	if lw.Diagnostics().HasErrors() {
		for _, d := range lw.Diagnostics().All() {
			fmt.Fprintln(os.Stderr, d)
		}
		os.Exit(1)
	}
	return prog
}

func compileFile(inputFile, outputFile string) {
	if outputFile == "" {
		if ext := filepath.Ext(inputFile); ext != "" {
			outputFile = strings.TrimSuffix(inputFile, ext) + ".zbc"
		} else {
			outputFile = inputFile + ".zbc"
		}
	}

	prog := lowerSourceFile(inputFile)

	out, err := os.Create(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := bytecode.Encode(prog, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing bytecode: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Compiled %s -> %s\n", inputFile, outputFile)
}

func disassembleFile(filename string) {
	var prog *bytecode.Program
	if filepath.Ext(filename) == ".zbc" {
		f, err := os.Open(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		prog, err = bytecode.Decode(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
			os.Exit(1)
		}
	} else {
		prog = lowerSourceFile(filename)
	}

	fmt.Printf("=== Bytecode Disassembly: %s ===\n\n", filename)
	if err := vm.Disassemble(prog, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error printing disassembly: %v\n", err)
		os.Exit(1)
	}
}

// runREPL provides a line-oriented interactive session. There is no
// incremental lowering pass (Lower always compiles a whole Module from
// scratch), so each accepted chunk is appended to a running source
// buffer and the entire buffer is re-parsed, re-lowered, and re-run
// against a fresh VM; only the output produced beyond what the
// previous run already printed is shown, since re-running the same
// deterministic prefix reproduces the same prefix of output.
func runREPL() {
	fmt.Printf("zen REPL v%s\n", version)
	fmt.Println("Type ':help' for help, ':quit' or ':exit' to exit")
	fmt.Println()

	var source strings.Builder
	source.WriteString("module main;\n")
	var previousOutput string

	scanner := bufio.NewScanner(os.Stdin)
	var pending strings.Builder

	for {
		if pending.Len() == 0 {
			fmt.Print("zen> ")
		} else {
			fmt.Print("...> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case ":quit", ":exit":
				fmt.Println("Goodbye!")
				return
			case ":help":
				printREPLHelp()
				continue
			case "":
				continue
			}
		}

		pending.WriteString(line)
		pending.WriteString("\n")

		trimmed := strings.TrimSpace(pending.String())
		if !strings.HasSuffix(trimmed, ";") && !strings.HasSuffix(trimmed, "}") {
			continue
		}

		chunk := pending.String()
		candidate := source.String() + chunk
		pending.Reset()

		out, err := evalREPLSource(candidate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			continue
		}
		source.WriteString(chunk)
		if len(out) > len(previousOutput) && strings.HasPrefix(out, previousOutput) {
			fmt.Print(out[len(previousOutput):])
		} else {
			fmt.Print(out)
		}
		previousOutput = out
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

func evalREPLSource(src string) (string, error) {
	p := parser.New("<repl>", src)
	mod := p.Parse()
	if p.Diagnostics().HasErrors() {
		return "", fmt.Errorf("parse error: %v", p.Diagnostics().All())
	}

	lw := lowering.New(bytecode.ModeInline, ".")
	prog := lw.Lower(mod)
	if lw.Diagnostics().HasErrors() {
		return "", fmt.Errorf("compile error: %v", lw.Diagnostics().All())
	}

	var out strings.Builder
	m := vm.New(&out)
	stdlib.Register(m, &out)
	if err := m.Run(prog); err != nil {
		return "", fmt.Errorf("runtime error: %v", err)
	}
	return out.String(), nil
}

func printREPLHelp() {
	fmt.Println("zen REPL Help")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  :help     Show this help message")
	fmt.Println("  :quit     Exit the REPL")
	fmt.Println("  :exit     Exit the REPL")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  - Enter zen statements and press Enter")
	fmt.Println("  - Statements end with ';', blocks with '}'")
	fmt.Println("  - Variables persist across statements")
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  zen> var x = 42;")
	fmt.Println("  zen> print(x + 8);")
	fmt.Println()
}
