// Command yasm is the assembler front end: it drives
// internal/assembler over a source file and writes the resulting
// relocatable object (spec §6), or disassembles an existing one back
// to text. The mode split and the -o flag follow asm/main.go's own
// shape; cobra replaces that file's bare flag.Parse with the richer
// CLI plumbing the rest of the example pack reaches for.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/sinc/internal/assembler"
	"github.com/gmofishsauce/sinc/internal/object"
)

const (
	wordsize  = 16
	vmVersion = 1
)

// fileIncluder resolves relative @include paths against the top-level
// input file's directory (also for includes nested inside an included
// file), same as the assembler_test.go fixtures do with an in-memory
// map -- this is just the filesystem-backed counterpart.
type fileIncluder struct {
	baseDir string
}

func (fi fileIncluder) Resolve(path string) (string, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(fi.baseDir, path)
	}
	text, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "** yasm: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yasm <input>",
		Short:         "Assemble sinc VM source into a relocatable object file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAssemble,
	}
	root.Flags().StringP("output", "o", "", "output object file (default: input with .o extension)")
	root.Flags().Uint16("entry", 0, "entry point address")

	disasmCmd := &cobra.Command{
		Use:   "disasm <object>",
		Short: "Disassemble a relocatable object file back to assembly text",
		Args:  cobra.ExactArgs(1),
		RunE:  runDisasm,
	}
	root.AddCommand(disasmCmd)
	return root
}

func runAssemble(cmd *cobra.Command, args []string) error {
	inputFile := args[0]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strippedExt(inputFile) + ".o"
	}
	entry, _ := cmd.Flags().GetUint16("entry")

	source, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}

	a := assembler.New(wordsize, vmVersion, fileIncluder{baseDir: filepath.Dir(inputFile)})
	obj, err := a.Assemble(entry, string(source))
	if err != nil {
		return err
	}
	for _, w := range a.Warnings() {
		fmt.Fprintln(os.Stderr, w.String())
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	return obj.Write(out)
}

func runDisasm(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	obj, err := object.Read(f)
	if err != nil {
		return err
	}
	text, err := assembler.Disassemble(obj.Code, int(obj.Wordsize)/8)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func strippedExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
