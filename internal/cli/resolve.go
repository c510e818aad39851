package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/factorylens/factorylens/internal/model"
)

// resolveCmd represents the resolve command.
var resolveCmd = &cobra.Command{
	Use:   "resolve FILE",
	Short: "Resolve factory references in a file",
	Long: `Resolve builds the index, scans the given file for factory call
sites and prints every reference that resolves to an indexed
definition, in document order.

Examples:
  factorylens resolve spec/models/user_spec.rb
`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(rootDir)
	if err != nil {
		return err
	}

	if _, err := eng.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	refs := eng.ResolveDocument(string(data))
	if len(refs) == 0 {
		fmt.Println("no references resolved")
		return nil
	}

	for _, ref := range refs {
		printReference(args[0], ref)
	}
	return nil
}

func printReference(sourceFile string, ref model.Reference) {
	what := fmt.Sprintf("factory %s", ref.FactoryName)
	if ref.Kind == model.TraitReference {
		what = fmt.Sprintf("trait of %s", ref.FactoryName)
	}
	fmt.Printf("%s:%d:%d %s -> %s:%d\n",
		sourceFile, ref.Span.Line+1, ref.Span.Column+1,
		what, ref.Target.FileID, ref.Target.Line+1)
}
