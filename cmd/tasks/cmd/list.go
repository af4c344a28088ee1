package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/querycache"
	"github.com/unkn0wn-root/querycache/tasks"
)

func newListCmd(r *runner) *cobra.Command {
	var (
		page, limit      int
		status, priority string
		prefetch         bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := tasks.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			pr, err := tasks.ParsePriorityFilter(priority)
			if err != nil {
				return err
			}
			f := tasks.Filter{Status: st, Priority: pr}

			return r.withApp(cmd, func(ctx context.Context, a *app) error {
				if !cmd.Flags().Changed("limit") {
					limit = a.cfg.PageSize
				}
				if !cmd.Flags().Changed("prefetch-next") {
					prefetch = a.cfg.PrefetchNext
				}
				res, err := watchListOnce(ctx, a, page, limit, f)
				if err != nil {
					return err
				}
				if !res.HasValue {
					return res.Err
				}
				if prefetch {
					if err := a.queries.PrefetchNext(ctx, a.client, res.Value.Pagination); err != nil {
						a.log.Warn("prefetch next page failed", querycache.Fields{"err": err})
					}
				}
				if r.json {
					return writeJSON(r.stdout, listJSON{Tasks: res.Value.Tasks, Pagination: res.Value.Pagination})
				}
				renderList(r.stdout, res.Value)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "tasks per page (default from config)")
	cmd.Flags().StringVarP(&status, "status", "s", "all", "all, active or completed")
	cmd.Flags().StringVar(&priority, "priority", "all", "all, low, medium or high")
	cmd.Flags().BoolVar(&prefetch, "prefetch-next", false, "warm the next page after listing")
	return cmd
}

// watchListOnce binds to the list page and returns the first settled
// result: a value or a fetch error, never a loading state.
func watchListOnce(ctx context.Context, a *app, page, limit int, f tasks.Filter) (querycache.Result[tasks.ListView], error) {
	ch := make(chan querycache.Result[tasks.ListView], 1)
	w := tasks.WatchList(ctx, a.client, a.queries, page, limit, f, func(res querycache.Result[tasks.ListView]) {
		if res.Fetching || (!res.HasValue && res.Err == nil) {
			return
		}
		select {
		case ch <- res:
		default:
		}
	})
	defer w.Close()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return querycache.Result[tasks.ListView]{}, ctx.Err()
	}
}

type listJSON struct {
	Tasks      []tasks.Task     `json:"tasks"`
	Pagination tasks.Pagination `json:"pagination"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderList(w io.Writer, v tasks.ListView) {
	if msg := v.EmptyMessage(); msg != "" {
		_, _ = fmt.Fprintln(w, msg)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tPRIORITY\tSTATUS\tTAGS")
	for _, t := range v.Tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Priority, statusLabel(t.Completed), strings.Join(t.Tags, ","))
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, v.Summary())
	if c := pageControls(v); c != "" {
		_, _ = fmt.Fprintln(w, c)
	}
}

func statusLabel(completed bool) string {
	if completed {
		return "completed"
	}
	return "active"
}

// pageControls renders the pagination bar, e.g. "< prev 1 ... 4 [5] 6 ... 10 next >".
func pageControls(v tasks.ListView) string {
	win := v.Window
	if win.Hidden() {
		return ""
	}
	var parts []string
	if v.HasPrev {
		parts = append(parts, "< prev")
	}
	if win.ShowFirst {
		parts = append(parts, "1")
		if win.LeadingEllipsis {
			parts = append(parts, "...")
		}
	}
	for _, p := range win.Pages {
		if p == win.Current {
			parts = append(parts, "["+strconv.Itoa(p)+"]")
			continue
		}
		parts = append(parts, strconv.Itoa(p))
	}
	if win.ShowLast {
		if win.TrailingEllipsis {
			parts = append(parts, "...")
		}
		parts = append(parts, strconv.Itoa(win.Total))
	}
	if v.HasNext {
		parts = append(parts, "next >")
	}
	return strings.Join(parts, " ")
}
