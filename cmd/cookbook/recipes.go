package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bububa/atomic-cookbook/agents"
	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/examples"
	"github.com/bububa/atomic-cookbook/examples/finance"
	"github.com/bububa/atomic-cookbook/examples/marketing"
	"github.com/bububa/atomic-cookbook/examples/media"
	"github.com/bububa/atomic-cookbook/examples/quickstart"
	"github.com/bububa/atomic-cookbook/examples/storage"
	"github.com/bububa/atomic-cookbook/examples/vision"
	"github.com/bububa/atomic-cookbook/examples/websearch"
	"github.com/bububa/atomic-cookbook/schema"
	"github.com/bububa/atomic-cookbook/tools/calculator"
	"github.com/bububa/atomic-cookbook/tools/fal"
	"github.com/bububa/atomic-cookbook/tools/searxng"
)

var heading = color.New(color.FgYellow, color.Bold).SprintFunc()

// agentOptions are applied to every recipe agent
func (a *app) agentOptions() []agents.Option {
	return []agents.Option{agents.WithLogger(a.logger)}
}

func (a *app) searchTool() *searxng.Tool {
	return searxng.New(
		searxng.WithBaseURL(a.cfg.Searxng.BaseURL),
		searxng.WithMaxResults(a.cfg.Searxng.MaxResults),
	)
}

func (a *app) basicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "basic [message]",
		Short: "Chat with the basic agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			agent := quickstart.NewAgent(a.client, a.chatModel(), a.agentOptions()...)
			_, err := examples.PrintRun(ctx(cmd), a.out, agent, prompt(args, quickstart.DefaultPrompt), a.cfg.Stream)
			return err
		},
	}
}

func (a *app) financeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finance [question]",
		Short: "Ask the finance agent which searches the web and calculates",
		RunE: func(cmd *cobra.Command, args []string) error {
			agent := finance.NewAgent(a.client, a.chatModel(), a.searchTool(), calculator.New(), a.agentOptions()...)
			_, err := examples.PrintAnswer(ctx(cmd), a.out, agent, prompt(args, finance.DefaultPrompt))
			return err
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [question]",
		Short: "Answer a question from web search results",
		RunE: func(cmd *cobra.Command, args []string) error {
			question := prompt(args, websearch.DefaultPrompt)
			agent := websearch.NewAgent(a.client, a.chatModel(), a.searchTool(), a.agentOptions()...)
			examples.PrintMessage(a.out, question)
			output := new(websearch.Output)
			resp := new(components.LLMResponse)
			if err := agent.Run(ctx(cmd), websearch.NewInput(question), output, resp); err != nil {
				return err
			}
			examples.PrintResponse(a.out, agent.Name(), output.MarkdownOutput)
			printList(a, "References", output.References)
			printList(a, "Follow-up questions", output.FollowUpQuestions)
			examples.PrintUsage(a.out, resp)
			return nil
		},
	}
}

func printList(a *app, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(a.out, heading(title+":"))
	for i, item := range items {
		fmt.Fprintf(a.out, "%d. %s\n", i+1, item)
	}
}

func (a *app) imageCmd() *cobra.Command {
	var images []string
	cmd := &cobra.Command{
		Use:   "image [message]",
		Short: "Describe an image and search the news about it",
		RunE: func(cmd *cobra.Command, args []string) error {
			message := prompt(args, vision.DefaultPrompt)
			agent := vision.NewAgent(a.client, a.chatModel(), a.searchTool(), a.agentOptions()...)
			examples.PrintMessage(a.out, message)
			output := new(schema.String)
			resp := new(components.LLMResponse)
			if err := agent.Run(ctx(cmd), vision.NewInput(message, images...), output, resp); err != nil {
				return err
			}
			examples.PrintResponse(a.out, agent.Name(), output.String())
			examples.PrintUsage(a.out, resp)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&images, "image", nil, "image url, repeat for several images")
	return cmd
}

func (a *app) mediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "media [prompt]",
		Short: "Generate an image or a video with fal",
		RunE: func(cmd *cobra.Command, args []string) error {
			falOpts := []fal.Option{fal.WithAPIKey(a.cfg.Fal.APIKey)}
			if a.cfg.Fal.Model != "" {
				falOpts = append(falOpts, fal.WithModel(a.cfg.Fal.Model))
			}
			agent := media.NewAgent(a.client, a.chatModel(), falOpts, a.agentOptions()...)
			if _, err := examples.PrintAnswer(ctx(cmd), a.out, agent, prompt(args, media.DefaultPrompt)); err != nil {
				return err
			}
			examples.PrintMedia(a.out, agent.Responder().Images(), agent.Responder().Videos())
			return nil
		},
	}
}

func (a *app) storageCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "storage [question...]",
		Short: "Hold a conversation persisted in the configured session storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := storage.Open(ctx(cmd), a.cfg.Storage)
			if err != nil {
				return err
			}
			defer closeFn()
			questions := storage.DefaultQuestions
			if len(args) > 0 {
				questions = args
			}
			agent := storage.NewAgent(a.client, a.chatModel(), store, sessionID, a.agentOptions()...)
			return storage.Run(ctx(cmd), a.out, agent, questions, a.cfg.Stream)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session to resume, a new one is started when empty")
	return cmd
}

func (a *app) marketingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "marketing",
		Short: "Scrape the configured contacts and send them personalised emails",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.Marketing.Contacts) == 0 {
				return fmt.Errorf("no contacts configured under marketing.contacts")
			}
			wf := marketing.NewWorkflow(a.client, a.chatModel(), a.cfg, a.logger, nil, nil)
			marketing.Run(ctx(cmd), a.out, wf)
			return nil
		},
	}
}
