package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"clipforge/internal/transcriber"
)

var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(r *cobra.Command, w io.Writer) error { return r.GenBashCompletionV2(w, true) },
	"zsh":        func(r *cobra.Command, w io.Writer) error { return r.GenZshCompletion(w) },
	"fish":       func(r *cobra.Command, w io.Writer) error { return r.GenFishCompletion(w, true) },
	"powershell": func(r *cobra.Command, w io.Writer) error { return r.GenPowerShellCompletionWithDesc(w) },
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell. Flag values such as
--aspect and --template complete too.

	source <(clipforge completion bash)
	clipforge completion zsh > "${fpath[1]}/_clipforge"
	clipforge completion fish | source
	clipforge completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// Needs no config file or writable dirs.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := completionScripts[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell %q", args[0])
			}
			return gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// flagChoices lists the fixed values of the enum-like edit and encode flags.
var flagChoices = map[string][]string{
	"aspect":         {"9:16", "16:9", "1:1"},
	"resolution":     {"480p", "720p", "1080p", "2K", "4K"},
	"duration":       {"<30s", "30-60s", "60-90s", "90-180s", "auto"},
	"template":       {"default", "modern", "classic", "minimal"},
	"effect":         {"none", "fade", "move", "shadow"},
	"color-filter":   {"none", "bright", "contrast", "vintage", "cinematic"},
	"audio-effect":   {"none", "echo", "reverb"},
	"quality-preset": {"low", "medium", "high"},
	"preset":         {"ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow"},
}

// completeFlagChoices registers value completion for whichever of
// flagChoices and --lang cmd defines.
func completeFlagChoices(cmd *cobra.Command) {
	if cmd.Flags().Lookup("lang") != nil {
		_ = cmd.RegisterFlagCompletionFunc("lang", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return append([]string{"auto"}, transcriber.Languages()...), cobra.ShellCompDirectiveNoFileComp
		})
	}
	for name, values := range flagChoices {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		values := values
		_ = cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		})
	}
}
