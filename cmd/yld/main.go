// Command yld links one or more relocatable object files (spec §4.5)
// into a flat binary executable by the VM. Mirrors lang/yld's own
// CLI shape (object files in, one flat binary out) through cobra.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/sinc/internal/linker"
	"github.com/gmofishsauce/sinc/internal/object"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "** yld: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yld <object...>",
		Short:         "Link relocatable sinc object files into a flat binary",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLink,
	}
	root.Flags().StringP("output", "o", "a.bin", "output flat-binary file")
	return root
}

func runLink(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	l := linker.New()
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		obj, err := object.Read(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		l.AddObject(obj)
	}

	wordsize, payload, err := l.Link()
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	return object.WriteFlat(out, wordsize, payload)
}
