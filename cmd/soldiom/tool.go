package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/soldiom/internal/adapters/terminal"
	"github.com/PabloGalante/soldiom/internal/app/markdown"
	"github.com/PabloGalante/soldiom/internal/app/tools"
	"github.com/PabloGalante/soldiom/internal/domain"
)

var (
	toolFrom string
	toolTo   string
	toolOut  string
)

var toolCmd = &cobra.Command{
	Use:   "tool <name> [text...]",
	Short: "Run one inference tool",
	Long: `Runs a single Hugging Face backed tool outside any chat session.

Tools: image, code, translate, summarize, transcribe, speak.

  soldiom tool image "a lighthouse at dawn" -o lighthouse.jpg
  soldiom tool translate --from eng_Latn --to deu_Latn "see you tomorrow"
  soldiom tool transcribe recording.wav
  soldiom tool speak "hello there" -o hello.flac`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: loadConfig,
	RunE:    runTool,
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"image", "code", "translate", "summarize", "transcribe", "speak"}, cobra.ShellCompDirectiveNoFileComp
	},
}

func init() {
	toolCmd.Flags().StringVar(&toolFrom, "from", tools.DefaultSourceLang, "Source language for translate (NLLB code)")
	toolCmd.Flags().StringVar(&toolTo, "to", tools.DefaultTargetLang, "Target language for translate (NLLB code)")
	toolCmd.Flags().StringVarP(&toolOut, "out", "o", "", "Write image or audio output to this file")
}

func runTool(cmd *cobra.Command, args []string) error {
	tool, err := newToolRegistry(cfg).Get(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	in := tools.Input{
		Text:       strings.Join(args[1:], " "),
		SourceLang: toolFrom,
		TargetLang: toolTo,
	}
	if tool.Name() == "transcribe" {
		if len(args) != 2 {
			return fmt.Errorf("transcribe takes one audio file")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		in.Text = ""
		in.Audio = &domain.Blob{ContentType: mime.TypeByExtension(filepath.Ext(args[1])), Data: data}
	}

	res, err := tool.Call(cmd.Context(), tools.ToolContext{}, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Blob != nil {
		path := toolOut
		if path == "" {
			path = defaultOutput(res)
		}
		if err := os.WriteFile(path, res.Blob.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s (%d bytes)\n", res.Text, path, len(res.Blob.Data))
		return nil
	}

	text := res.Text
	if res.Kind == tools.KindCode {
		text = "```\n" + text + "\n```"
	}
	r := terminal.NewRenderer(terminal.Options{})
	fmt.Fprintln(out, r.Render(markdown.Structure(text), nil))
	return nil
}

func defaultOutput(res *tools.Result) string {
	ext := ".bin"
	if exts, _ := mime.ExtensionsByType(res.Blob.ContentType); len(exts) > 0 {
		ext = exts[0]
	}
	return "soldiom-" + string(res.Kind) + ext
}
