package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/querycache"
	"github.com/unkn0wn-root/querycache/tasks"
)

func newShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskID(args[0])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *app) error {
				res := querycache.Fetch(ctx, a.client, a.queries.Task(id))
				if !res.HasValue {
					if res.Err != nil {
						return res.Err
					}
					return fmt.Errorf("task %s could not be loaded", id)
				}
				return r.printTask(res.Value)
			})
		},
	}
}

type formFlags struct {
	title, description, priority string
	tags, images                 []string
	completed                    bool
}

func (f *formFlags) register(cmd *cobra.Command, priorityDefault string) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&f.priority, "priority", priorityDefault, "low, medium or high")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "comma-separated tags")
	cmd.Flags().StringSliceVar(&f.images, "image", nil, "image URL (repeatable)")
	cmd.Flags().BoolVar(&f.completed, "completed", false, "mark the task completed")
}

func newCreateCmd(r *runner) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.mutator.Create(ctx, tasks.FormData{
					Title:       f.title,
					Description: f.description,
					Tags:        f.tags,
					Priority:    tasks.Priority(strings.ToLower(strings.TrimSpace(f.priority))),
					Images:      f.images,
					Completed:   f.completed,
				})
				if err != nil {
					return err
				}
				return r.report("Created", t)
			})
		},
	}
	f.register(cmd, string(tasks.PriorityMedium))
	return cmd
}

func newUpdateCmd(r *runner) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskID(args[0])
			if err != nil {
				return err
			}
			p := patchFromFlags(cmd, &f)
			return r.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.mutator.Update(ctx, id, p)
				if err != nil {
					return err
				}
				return r.report("Updated", t)
			})
		},
	}
	f.register(cmd, "")
	return cmd
}

// patchFromFlags sets only the fields whose flags were given.
func patchFromFlags(cmd *cobra.Command, f *formFlags) tasks.Patch {
	var p tasks.Patch
	changed := cmd.Flags().Changed
	if changed("title") {
		p.Title = &f.title
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("priority") {
		pr := tasks.Priority(strings.ToLower(strings.TrimSpace(f.priority)))
		p.Priority = &pr
	}
	if changed("tags") {
		p.Tags = append([]string{}, f.tags...)
	}
	if changed("image") {
		p.Images = append([]string{}, f.images...)
	}
	if changed("completed") {
		p.Completed = &f.completed
	}
	return p
}

func newDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskID(args[0])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.mutator.Delete(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(r.stdout, "Deleted task %s\n", id)
				return nil
			})
		},
	}
}

func newCompleteCmd(r *runner) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed (or active again with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := taskID(args[0])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.mutator.ToggleComplete(ctx, id, !undo)
				if err != nil {
					return err
				}
				verb := "Completed"
				if undo {
					verb = "Reopened"
				}
				return r.report(verb, t)
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the task active again")
	return cmd
}

func taskID(arg string) (string, error) {
	id := strings.TrimSpace(arg)
	if id == "" {
		return "", errors.New("task id is required")
	}
	return id, nil
}

func (r *runner) report(verb string, t tasks.Task) error {
	if r.json {
		return writeJSON(r.stdout, t)
	}
	_, _ = fmt.Fprintf(r.stdout, "%s task %s: %s\n", verb, t.ID, t.Title)
	return nil
}

func (r *runner) printTask(t tasks.Task) error {
	if r.json {
		return writeJSON(r.stdout, t)
	}
	renderTask(r.stdout, t)
	return nil
}

func renderTask(w io.Writer, t tasks.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) { _, _ = fmt.Fprintf(tw, "%s:\t%s\n", k, v) }
	row("ID", t.ID)
	row("Title", t.Title)
	row("Description", t.Description)
	row("Priority", string(t.Priority))
	row("Status", statusLabel(t.Completed))
	row("Tags", strings.Join(t.Tags, ", "))
	if len(t.Images) > 0 {
		row("Images", strings.Join(t.Images, ", "))
	}
	if !t.CreatedAt.IsZero() {
		row("Created", t.CreatedAt.Format(time.RFC3339))
	}
	if !t.UpdatedAt.IsZero() {
		row("Updated", t.UpdatedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}
