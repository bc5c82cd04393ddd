package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/soldiom/internal/adapters/terminal"
	"github.com/PabloGalante/soldiom/internal/app/markdown"
)

var structureRender bool

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Structure markdown from stdin into render nodes",
	Long: `Reads markdown from stdin and prints the render nodes as JSON, or draws
them for the terminal with --render.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}

		nodes := markdown.Structure(string(data))
		if structureRender {
			fmt.Fprintln(cmd.OutOrStdout(), terminal.NewRenderer(terminal.Options{}).Render(nodes, nil))
			return nil
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(markdown.Views(nodes))
	},
}

func init() {
	structureCmd.Flags().BoolVar(&structureRender, "render", false, "Render for the terminal instead of printing JSON")
}
