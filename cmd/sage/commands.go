package main

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/kalambet/sage/internal/action"
	"github.com/kalambet/sage/internal/api"
	"github.com/kalambet/sage/internal/config"
	"github.com/kalambet/sage/internal/dialogue"
	"github.com/kalambet/sage/internal/nlp"
)

// --- understanding ---

var understandCmd = &cobra.Command{
	Use:   "understand <text>",
	Short: "Classify an utterance and print the response",
	Long: `Classify an utterance as a command or chat and print the response.

Examples:
  sage understand play some music
  sage understand --remember "who are you"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rememberTurn, _ := cmd.Flags().GetBool("remember")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.post(cmd.Context(), "/understand", api.TextRequest{
			Text:     strings.Join(args, " "),
			Remember: rememberTurn,
		})
		if err != nil {
			return err
		}

		var res api.UnderstandResponse
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "type:"), res.CommandType)
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "response:"), res.Response)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Print the command analysis of an utterance as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.post(cmd.Context(), "/analyze", api.TextRequest{Text: strings.Join(args, " ")})
		if err != nil {
			return err
		}

		var a nlp.Analysis
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), a)
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text>",
	Short: "Rewrite an utterance onto canonical command keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.post(cmd.Context(), "/normalize", api.TextRequest{Text: strings.Join(args, " ")})
		if err != nil {
			return err
		}

		var res map[string]string
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res["normalized"])
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <text>",
	Short: "Show the action an utterance maps to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.post(cmd.Context(), "/route", api.TextRequest{Text: strings.Join(args, " ")})
		if err != nil {
			return err
		}

		var res api.RouteResponse
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "type:"), res.Result.CommandType)
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "normalized:"), res.Normalized)
		fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "action:"), describeAction(res.Action))
		return nil
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <tag>",
	Short: "Print a random response of an intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.get(cmd.Context(), "/respond/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var res map[string]string
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res["response"])
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the remembered turns of the server session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.get(cmd.Context(), "/history")
		if err != nil {
			return err
		}

		var res struct {
			Turns []dialogue.Turn `json:"turns"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(res.Turns) == 0 {
			fmt.Fprintln(out, "No turns remembered.")
			return nil
		}
		for _, t := range res.Turns {
			fmt.Fprintf(out, "%s  %s  %s\n  %s\n",
				colorize(colorCyan, fmt.Sprintf("#%d", t.ID)),
				t.At.Format("15:04:05"),
				t.Input,
				t.Response,
			)
		}
		return nil
	},
}

// --- vocabulary ---

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Manage chat intents",
}

var intentAddCmd = &cobra.Command{
	Use:   "add <tag>",
	Short: "Add an intent or extend an existing one",
	Long: `Add an intent or extend an existing one.

Examples:
  sage intent add farewell --pattern "see ya" --response "Bye!"
  sage intent add joke --pattern "tell me a joke" --response "Knock knock."`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, _ := cmd.Flags().GetStringArray("pattern")
		responses, _ := cmd.Flags().GetStringArray("response")
		if len(responses) == 0 {
			return fmt.Errorf("at least one --response is required")
		}

		return mutate(cmd, "/intents", api.IntentRequest{
			Tag:       args[0],
			Patterns:  patterns,
			Responses: responses,
		}, fmt.Sprintf("Intent %s updated", args[0]))
	},
}

var synonymCmd = &cobra.Command{
	Use:   "synonym",
	Short: "Manage command keyword synonyms",
}

var synonymAddCmd = &cobra.Command{
	Use:   "add <canonical> <variant>...",
	Short: "Add variants for a canonical command keyword",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, "/synonyms", api.SynonymRequest{
			Canonical: args[0],
			Variants:  args[1:],
		}, fmt.Sprintf("Synonyms for %s updated", args[0]))
	},
}

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Manage command patterns",
}

var patternAddCmd = &cobra.Command{
	Use:   "add <type>",
	Short: "Add verbs, nouns or phrases for a command type",
	Long: `Add verbs, nouns or phrases for a command type. The type is created
if it does not exist.

Examples:
  sage pattern add lights --verb switch --noun lights --phrase "lights on"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbs, _ := cmd.Flags().GetStringArray("verb")
		nouns, _ := cmd.Flags().GetStringArray("noun")
		phrases, _ := cmd.Flags().GetStringArray("phrase")
		if len(verbs)+len(nouns)+len(phrases) == 0 {
			return fmt.Errorf("one of --verb, --noun, or --phrase is required")
		}

		return mutate(cmd, "/command-patterns", api.CommandPatternRequest{
			Type:    args[0],
			Verbs:   verbs,
			Nouns:   nouns,
			Phrases: phrases,
		}, fmt.Sprintf("Command pattern %s updated", args[0]))
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage context patterns",
}

var contextAddCmd = &cobra.Command{
	Use:   "add <type> <keyword>...",
	Short: "Add keywords for a context type",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, "/context-patterns", api.ContextPatternRequest{
			Type:     args[0],
			Keywords: args[1:],
		}, fmt.Sprintf("Context pattern %s updated", args[0]))
	},
}

func init() {
	understandCmd.Flags().Bool("remember", false, "append the exchange to the conversation log")

	intentAddCmd.Flags().StringArray("pattern", nil, "example phrasing (repeatable)")
	intentAddCmd.Flags().StringArray("response", nil, "candidate response (repeatable)")
	intentCmd.AddCommand(intentAddCmd)

	synonymCmd.AddCommand(synonymAddCmd)

	patternAddCmd.Flags().StringArray("verb", nil, "verb (repeatable)")
	patternAddCmd.Flags().StringArray("noun", nil, "noun (repeatable)")
	patternAddCmd.Flags().StringArray("phrase", nil, "phrase (repeatable)")
	patternCmd.AddCommand(patternAddCmd)

	contextCmd.AddCommand(contextAddCmd)
}

// mutate posts a vocabulary change. A change the server applied but could
// not persist is reported as a warning, not an error.
func mutate(cmd *cobra.Command, path string, body any, done string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.post(cmd.Context(), path, body)
	if err != nil {
		return err
	}

	var res api.MutationResponse
	if err := decodeJSON(resp, &res); err != nil {
		return err
	}

	if !res.Persisted {
		printWarning("%s in memory only, not persisted: %s", done, res.Error)
		return nil
	}
	printSuccess("%s", done)
	return nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to sage interactively",
	Long: `Read utterances from stdin, one per line, and answer each of them.
Commands are shown with the action they map to. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		di := newInjector(cfg)
		defer di.Shutdown()

		e, err := do.Invoke[*dialogue.Engine](di)
		if err != nil {
			return err
		}
		return chatLoop(e, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

type chatEngine interface {
	Understand(text string) dialogue.Result
	RememberWith(input, response string, understanding dialogue.Result) dialogue.Turn
}

func chatLoop(e chatEngine, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, colorize(colorCyan, "you> "))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			fmt.Fprint(out, colorize(colorCyan, "you> "))
			continue
		}

		act := action.Classify(line)
		if act.Kind == action.Exit {
			fmt.Fprintln(out, "sage> Goodbye!")
			return nil
		}

		res := e.Understand(line)
		fmt.Fprintf(out, "sage> %s\n", res.Response)
		if res.CommandType != dialogue.ChatType && act.Kind != action.None {
			fmt.Fprintf(out, "      %s\n", colorize(colorYellow, describeAction(act)))
		}
		e.RememberWith(line, res.Response, res)

		fmt.Fprint(out, colorize(colorCyan, "you> "))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

func describeAction(a action.Action) string {
	s := string(a.Kind)
	if a.Verb != "" {
		s += " " + a.Verb
	}
	if a.Target != "" {
		s += fmt.Sprintf(" %q", a.Target)
	}
	return s
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %s\n", colorize(colorCyan, config.ConfigFilePath()))
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
