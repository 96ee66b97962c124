package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/enhance"
	"github.com/yitzyh/shtell/pkg/source"
	"github.com/yitzyh/shtell/pkg/store"
)

// maxListed limits decisions printed per change-set in text mode
const maxListed = 20

type changeSetReport struct {
	ChangeSet domain.ChangeSet   `json:"change_set"`
	DryRun    bool               `json:"dry_run"`
	Applied   *store.ApplyResult `json:"applied,omitempty"`
}

func (a *app) printChangeSet(cs domain.ChangeSet, applied store.ApplyResult) error {
	if a.opts.JSON {
		rep := changeSetReport{ChangeSet: cs, DryRun: !a.opts.Apply}
		if a.opts.Apply {
			rep.Applied = &applied
		}
		return a.printJSON(rep)
	}

	mode := "dry-run"
	if a.opts.Apply {
		mode = "applied"
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(a.out, "%s: %d records, %d skipped (%s)\n", bold(cs.Policy), cs.Stats.Total, cs.Stats.Skipped, mode)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, act := range domain.Actions {
		if n := cs.Stats.PerAction[act]; n > 0 {
			fmt.Fprintf(tw, "  %s\t%d\n", act, n)
		}
	}
	for _, cat := range slices.Sorted(maps.Keys(cs.Stats.PerCategory)) {
		fmt.Fprintf(tw, "  category %s\t%d\n", cat, cs.Stats.PerCategory[cat])
	}
	for _, outcome := range slices.Sorted(maps.Keys(cs.Stats.PerReview)) {
		fmt.Fprintf(tw, "  review %s\t%d\n", outcome, cs.Stats.PerReview[outcome])
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print report: %w", err)
	}

	listed := 0
	for _, d := range cs.Decisions {
		if d.Action == domain.ActionKeepActive {
			continue
		}
		if listed == maxListed {
			fmt.Fprintf(a.out, "  ... %d more\n", len(cs.Decisions)-cs.Stats.PerAction[domain.ActionKeepActive]-listed)
			break
		}
		fmt.Fprintf(a.out, "  %s %q %v\n", actionColor(d.Action)(string(d.Action)), d.Title, d.Reasons)
		listed++
	}
	for _, s := range cs.Skipped {
		fmt.Fprintf(a.out, "  skipped #%d %q: %s\n", s.Index, s.Title, s.Reason)
	}

	if a.opts.Apply {
		fmt.Fprintf(a.out, "  updated %d, deleted %d, unchanged %d, missing %d, failed %d\n",
			applied.Updated, applied.Deleted, applied.Unchanged, applied.Missing, len(applied.Failed))
	}
	return nil
}

func (a *app) printEnhance(res enhance.Result, written, failed int) error {
	if a.opts.JSON {
		return a.printJSON(res)
	}
	fmt.Fprintf(a.out, "checked %d, complete %d, enhanced %d, summarized %d, failed %d\n",
		res.Checked, res.Complete, res.Enhanced, res.Summarized, len(res.Failed))
	for _, id := range slices.Sorted(maps.Keys(res.Failed)) {
		fmt.Fprintf(a.out, "  failed %s: %s\n", id, res.Failed[id])
	}
	if a.opts.Apply {
		fmt.Fprintf(a.out, "  written %d, failed %d\n", written, failed)
	}
	return nil
}

func (a *app) printIngest(res source.IngestResult) error {
	if a.opts.JSON {
		return a.printJSON(res)
	}
	fmt.Fprintf(a.out, "new %d, already stored %d\n", len(res.Records), res.Existing)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, name := range slices.Sorted(maps.Keys(res.PerFeed)) {
		fmt.Fprintf(tw, "  %s\t%d\n", name, res.PerFeed[name])
	}
	for _, name := range slices.Sorted(maps.Keys(res.Errors)) {
		fmt.Fprintf(tw, "  %s\t%s\n", name, color.RedString(res.Errors[name]))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if a.opts.Apply {
		fmt.Fprintf(a.out, "  written %d, failed %d\n", res.Written, len(res.Failed))
	}
	return nil
}

func (a *app) printStatus(counts []store.StatusCount) error {
	if a.opts.JSON {
		return a.printJSON(counts)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSTATUS\tCOUNT")
	total := 0
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Category, c.Status, c.Count)
		total += c.Count
	}
	fmt.Fprintf(tw, "total\t\t%d\n", total)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("print status: %w", err)
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func actionColor(act domain.Action) func(a ...any) string {
	switch act {
	case domain.ActionDelete:
		return color.New(color.FgHiRed).SprintFunc()
	case domain.ActionDeactivate:
		return color.New(color.FgRed).SprintFunc()
	case domain.ActionActivate:
		return color.New(color.FgGreen).SprintFunc()
	default:
		return color.New(color.FgYellow).SprintFunc()
	}
}
