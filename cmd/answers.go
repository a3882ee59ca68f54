package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Smackface/go-easy-apply/internal/answers"
)

func newAnswersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Inspect and edit the saved answers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved answers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := answers.Load(a.cfg.Answers.Path, nil)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range store.Entries() {
					fmt.Fprintf(w, "%s\t%s\n", e.Question, e.Answer)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "set QUESTION ANSWER",
			Short: "Save or replace the answer to a question",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := answers.Load(a.cfg.Answers.Path, nil)
				if err != nil {
					return err
				}
				store.Put(args[0], args[1])
				if _, err := store.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %q.\n", answers.Normalize(args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:     "delete QUESTION",
			Aliases: []string{"rm"},
			Short:   "Forget the answer to a question",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := answers.Load(a.cfg.Answers.Path, nil)
				if err != nil {
					return err
				}
				if !store.Delete(args[0]) {
					return fmt.Errorf("no saved answer for %q", args[0])
				}
				if _, err := store.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q.\n", answers.Normalize(args[0]))
				return nil
			},
		},
	)
	return cmd
}
