package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/raphaelgruber/docsum/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallelUploads bounds concurrent submissions from one command.
const maxParallelUploads = 4

func newSubmitCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <file>...",
		Short: "Upload documents for summarization",
		Long: `Upload one or more documents. Each upload creates a job that starts out
pending; use 'docsum jobs' or 'docsum watch' to follow it.

Examples:
  docsum submit report.docx
  docsum submit notes/*.pdf --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var (
				g   errgroup.Group
				mu  sync.Mutex
				ids = make([]models.JobID, len(args))
			)
			g.SetLimit(maxParallelUploads)

			for i, path := range args {
				g.Go(func() error {
					job, err := a.tracker.SubmitFile(cmd.Context(), path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					mu.Lock()
					ids[i] = job.ID
					mu.Unlock()
					return nil
				})
			}
			err := g.Wait()

			for i, path := range args {
				if ids[i] != "" {
					fmt.Fprintf(out, "Submitted %s as job %s (%s)\n", path, ids[i], models.JobStatusPending)
				}
			}
			if err != nil {
				return err
			}

			if watch {
				return runWatch(cmd, a)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow jobs until they finish")
	return cmd
}

func newJobsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List summarization jobs",
		Long: `List every job of the signed-in account, finished jobs first.

Examples:
  docsum jobs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := a.tracker.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
}

func newResultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "result <job-id>",
		Short: "Print the summary of a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The job list is per process; load it before checking the job.
			if _, err := a.tracker.Refresh(cmd.Context()); err != nil {
				return err
			}

			summary, err := a.tracker.FetchResult(cmd.Context(), models.JobID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func printJobs(w io.Writer, jobs []models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return
	}

	fmt.Fprintf(w, "%-12s %s\n", "ID", "STATUS")
	fmt.Fprintln(w, "------------------------")
	for _, job := range jobs {
		fmt.Fprintf(w, "%-12s %s\n", job.ID, job.Status)
	}
}
