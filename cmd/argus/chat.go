package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/argus-sec/argus/pkg/llm"
)

// reviewSystemPrompt steers the model toward actionable security review
// output when the caller does not supply a system prompt of their own.
const reviewSystemPrompt = "You are a senior application security engineer. " +
	"Review the code or diff you are given, report concrete vulnerabilities " +
	"with file and line references, and suggest minimal fixes. Say so plainly " +
	"when you find nothing actionable."

func cmdChat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	providerID := fs.String("provider", "", "provider to use (default: configured provider)")
	model := fs.String("model", "", "model id (default: configured model)")
	system := fs.String("system", "", "system prompt (default: the built-in review prompt)")
	noStream := fs.Bool("no-stream", false, "wait for the full response instead of streaming")
	temperature := fs.Float64("temperature", -1, "sampling temperature (negative: provider default)")
	maxTokens := fs.Int("max-tokens", 0, "response token limit (0: provider default)")
	asJSON := fs.Bool("json", false, "emit the normalized response as JSON (implies -no-stream)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: argus chat [flags] [prompt...]")
		fmt.Fprintln(os.Stderr, "The prompt is read from stdin when no arguments are given.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return fmt.Errorf("no prompt given; pass it as arguments or on stdin")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	id := *providerID
	if id == "" {
		id = cfg.Provider
	}
	modelID := *model
	if modelID == "" {
		modelID = cfg.ModelFor(id)
	}

	reg := newRegistry()
	defer reg.DestroyAll()

	pc := cfg.ProviderFor(id)
	prov, err := reg.Bootstrap(ctx, id, pc.APIKey, modelID, pc.BaseURL)
	if prov == nil {
		return err
	}
	if err != nil {
		// Model not in the vendor catalog. The provider is still usable;
		// some vendors serve models they do not list.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	req := &llm.ChatRequest{
		Model:        modelID,
		Messages:     []llm.ChatMessage{llm.TextMessage(llm.RoleUser, prompt)},
		SystemPrompt: reviewSystemPrompt,
	}
	if *system != "" {
		req.SystemPrompt = *system
	}
	if *temperature >= 0 {
		req.Temperature = temperature
	}
	if *maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	stream := prov.Info().SupportsStreaming && !*noStream && !*asJSON
	var resp *llm.ChatResponse
	if stream {
		resp, err = prov.ChatStream(ctx, req, printDelta)
		if err != nil {
			fmt.Fprintln(os.Stdout)
			return err
		}
		fmt.Fprintln(os.Stdout)
	} else {
		resp, err = prov.Chat(ctx, req)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(resp)
		}
		fmt.Println(resp.Text)
	}

	reportToolCalls(resp)
	reportUsage(resp)
	return nil
}

// printDelta writes text fragments to stdout as they arrive and announces
// tool-call starts on stderr so piped output stays clean.
func printDelta(delta llm.StreamDelta) {
	if delta.Text != "" {
		fmt.Fprint(os.Stdout, delta.Text)
	}
	if delta.ToolUse != nil && delta.ToolUse.Name != "" {
		fmt.Fprintf(os.Stderr, "[requesting tool %s]\n", delta.ToolUse.Name)
	}
}

func reportToolCalls(resp *llm.ChatResponse) {
	if len(resp.ToolCalls) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\nmodel requested %d tool call(s):\n", len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		input, err := json.Marshal(call.Input)
		if err != nil {
			input = []byte("{}")
		}
		fmt.Fprintf(os.Stderr, "  %s %s\n", call.Name, input)
	}
}

func reportUsage(resp *llm.ChatResponse) {
	if resp.Usage == nil {
		fmt.Fprintf(os.Stderr, "\n[%s, %s]\n", resp.Model, resp.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(os.Stderr, "\n[%s, %s, %d in / %d out tokens]\n",
		resp.Model, resp.Duration.Round(time.Millisecond),
		resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
