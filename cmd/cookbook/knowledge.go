package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bububa/atomic-cookbook/components/embedder"
	"github.com/bububa/atomic-cookbook/components/knowledge"
	"github.com/bububa/atomic-cookbook/examples"
	recipe "github.com/bububa/atomic-cookbook/examples/knowledge"
)

type knowledgeFlags struct {
	urls     []string
	recreate bool
	upsert   bool
	load     bool
}

func (kf knowledgeFlags) options() knowledge.LoadOptions {
	return knowledge.LoadOptions{Recreate: kf.recreate, Upsert: kf.upsert, SkipExisting: !kf.recreate}
}

func (a *app) knowledgeCmd() *cobra.Command {
	var kf knowledgeFlags
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Load documents into the vector database and ask about them",
	}
	cmd.PersistentFlags().StringSliceVar(&kf.urls, "url", nil, "document url, repeat for several documents")

	load := &cobra.Command{
		Use:   "load",
		Short: "Load the documents into the configured vector database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kf.load = true
			return a.withKnowledge(ctx(cmd), kf, nil)
		},
	}
	load.Flags().BoolVar(&kf.recreate, "recreate", false, "drop the collection first")
	load.Flags().BoolVar(&kf.upsert, "upsert", false, "replace stored documents with the same content")

	ask := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the agent with references from the vector database",
		RunE: func(cmd *cobra.Command, args []string) error {
			kf.load = kf.load || kf.recreate
			return a.withKnowledge(ctx(cmd), kf, func(ctx context.Context, kb *knowledge.Base) error {
				agent := recipe.NewAgent(a.client, a.chatModel(), kb, a.agentOptions()...)
				_, err := examples.PrintRun(ctx, a.out, agent, prompt(args, recipe.DefaultQuestion), a.cfg.Stream)
				return err
			})
		},
	}
	ask.Flags().BoolVar(&kf.load, "load", false, "load the documents before asking")
	ask.Flags().BoolVar(&kf.recreate, "recreate", false, "drop the collection and load the documents first")

	cmd.AddCommand(load, ask)
	return cmd
}

// withKnowledge opens the vector database, loads the documents when kf.load is set
// and calls fn when it is not nil
func (a *app) withKnowledge(ctx context.Context, kf knowledgeFlags, fn func(context.Context, *knowledge.Base) error) error {
	e, err := examples.NewEmbedder(ctx, a.cfg)
	if err != nil {
		return err
	}
	db, closeFn, err := recipe.NewVectorDB(ctx, a.cfg, e, a.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	bar := newProgressBar(a.progress, len(kf.urls), "loading documents")
	opts := []knowledge.Option{
		knowledge.WithLogger(a.logger),
		knowledge.WithProgress(func(string, int, error) {
			_ = bar.Add(1)
		}),
	}
	if e.Provider() != embedder.ProviderHashing {
		opts = append(opts, knowledge.WithChunker(recipe.NewChunker(a.chatModel())))
	}
	kb, err := recipe.NewKnowledge(db, kf.urls, opts...)
	if err != nil {
		return err
	}
	bar.ChangeMax(len(kb.Sources()))
	if kf.load {
		n, err := kb.Load(ctx, kf.options())
		_ = bar.Finish()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %d documents into %s\n", color.GreenString("loaded"), n, a.cfg.VectorDB.Collection)
	}
	if fn == nil {
		return nil
	}
	return fn(ctx, kb)
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("documents"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
