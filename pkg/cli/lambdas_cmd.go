package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/go-mason/mason/pkg/render"
)

func lambdasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lambdas",
		Short: "List the case-transform lambdas every brick template can reference",
		Args:  cobra.NoArgs,
		RunE:  printLambdas,
	}
}

func printLambdas(_ *cobra.Command, _ []string) error {
	root := tree.Root("Lambdas (usable as {{var#name}} or {{var.name()}}):")
	for _, name := range render.LambdaNames() {
		root.Child(name)
	}

	fmt.Println(root.Enumerator(tree.RoundedEnumerator))
	return nil
}
