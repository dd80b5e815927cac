package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalmate/evalmate/internal/config"
	"github.com/evalmate/evalmate/internal/eval"
	"github.com/evalmate/evalmate/internal/fusion"
	"github.com/evalmate/evalmate/internal/llm"
	"github.com/evalmate/evalmate/internal/model"
	"github.com/evalmate/evalmate/internal/rubric"
	"github.com/evalmate/evalmate/internal/store"
)

var (
	flagDataDir string
	flagModel   string
)

func main() {
	root := &cobra.Command{
		Use:           "evalctl",
		Short:         "Structure rubrics and evaluate submissions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./data", "data directory for the JSON store")
	root.PersistentFlags().StringVar(&flagModel, "model", "", "model name (defaults to EVAL_MODEL or gpt-4o-mini)")

	root.AddCommand(rubricCmd(), evaluateCmd(), resultCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore() (*store.FSStore, error) {
	return store.NewFSStore(flagDataDir)
}

func modelName() string {
	if flagModel != "" {
		return flagModel
	}
	return config.FromEnv().Model
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rubricCmd() *cobra.Command {
	var course, assignment, version string

	cmd := &cobra.Command{
		Use:   "rubric",
		Short: "Rubric operations",
	}

	parse := &cobra.Command{
		Use:   "parse <document.json>",
		Short: "Structure a canonical rubric document into weighted items and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var doc model.CanonicalDoc
			if err := json.Unmarshal(buf, &doc); err != nil {
				return fmt.Errorf("parse document: %w", err)
			}
			if doc.ID == "" {
				doc.ID = model.NewDocID()
			}
			for i := range doc.Blocks {
				if doc.Blocks[i].ID == "" {
					doc.Blocks[i].ID = model.NewBlockID()
				}
			}

			rb, err := rubric.NewEngine().Structure(cmd.Context(), doc, course, assignment, version)
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			if err := st.PutRubric(cmd.Context(), rb); err != nil {
				return err
			}
			return printJSON(rb)
		},
	}
	parse.Flags().StringVar(&course, "course", "", "course identifier")
	parse.Flags().StringVar(&assignment, "assignment", "", "assignment identifier")
	parse.Flags().StringVar(&version, "version", "v1", "rubric version")

	show := &cobra.Command{
		Use:   "show <rubric-id>",
		Short: "Print a stored rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			rb, err := st.GetRubric(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(rb)
		},
	}

	cmd.AddCommand(parse, show)
	return cmd
}

func evaluateCmd() *cobra.Command {
	var mode string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "evaluate <submission-id>",
		Short: "Evaluate a stored submission against its rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required")
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			m := modelName()
			builder := fusion.NewBuilder(st, st, fusion.NewTiktokenEstimator(m), m)
			gen := llm.NewOpenAI(apiKey, m)
			ev := eval.New(st, builder, gen, st, m, eval.WithConcurrency(concurrency))

			var res model.EvalResult
			switch mode {
			case "structured":
				res, err = ev.Evaluate(cmd.Context(), args[0])
			case "narrative":
				res, err = ev.Narrative(cmd.Context(), args[0])
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "structured", "evaluation mode: structured|narrative")
	cmd.Flags().IntVar(&concurrency, "concurrency", 3, "criteria evaluated in parallel")
	return cmd
}

func resultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Result operations",
	}

	show := &cobra.Command{
		Use:   "show <result-id>",
		Short: "Print a stored evaluation result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			res, err := st.GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	list := &cobra.Command{
		Use:   "list <submission-id>",
		Short: "List results for a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			results, err := st.ListResults(cmd.Context(), args[0], store.ListOpts{})
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}

	cmd.AddCommand(show, list)
	return cmd
}
