package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Sternrassler/canvas-lms-client/pkg/aggregate"
	"github.com/Sternrassler/canvas-lms-client/pkg/canvas"
	"github.com/Sternrassler/canvas-lms-client/pkg/export"
	"github.com/Sternrassler/canvas-lms-client/pkg/snapshot"
	"github.com/Sternrassler/canvas-lms-client/pkg/table"
	"github.com/Sternrassler/canvas-lms-client/pkg/views"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"courses":      {"list enrolled courses", runCourses},
	"assignments":  {"list assignments with submission status", runAssignments},
	"peers":        {"list users enrolled in your courses", runPeers},
	"best-friends": {"rank classmates by shared courses", runBestFriends},
	"upcoming":     {"list assignments due soon", runUpcoming},
}

// result is what a command hands to the output stage.
type result struct {
	resource  string
	table     *table.Table
	courseIDs []int64
	runID     string
	failures  []aggregate.Failure[int64]
}

type outputFlags struct {
	format  string
	path    string
	publish bool
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.format, "format", "csv", "output format: csv or xlsx")
	fs.StringVar(&o.path, "o", "", "output file (default stdout)")
	fs.BoolVar(&o.publish, "snapshot", false, "publish the result table to Redis")
}

type courseFlags struct {
	ids     string
	current bool
}

func (c *courseFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.ids, "courses", "", "comma-separated course ids (default: all listed courses)")
	fs.BoolVar(&c.current, "current", true, "when -courses is empty, use only courses in a current term")
}

// resolve returns the explicit course ids, or lists courses when none were given.
func (c *courseFlags) resolve(ctx context.Context, a *app) ([]int64, error) {
	if strings.TrimSpace(c.ids) != "" {
		return parseIDs(c.ids)
	}
	courses, err := a.canvas.Courses(ctx, canvas.CourseOptions{CurrentOnly: c.current})
	if err != nil {
		return nil, err
	}
	return canvas.CourseIDs(courses), nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid course id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func runCourses(ctx context.Context, a *app, args []string) error {
	var out outputFlags
	fs := newFlagSet(a, "courses")
	current := fs.Bool("current", false, "only courses whose term includes today")
	out.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	courses, err := a.canvas.Courses(ctx, canvas.CourseOptions{CurrentOnly: *current})
	if err != nil {
		return err
	}
	return a.emit(ctx, out, result{resource: "courses", table: courses, courseIDs: canvas.CourseIDs(courses)})
}

func runAssignments(ctx context.Context, a *app, args []string) error {
	var (
		out     outputFlags
		courses courseFlags
	)
	fs := newFlagSet(a, "assignments")
	noWeights := fs.Bool("no-weights", false, "skip the assignment group join")
	workers := fs.Int("workers", a.cfg.Workers.Assignments, "concurrent course fetches")
	out.register(fs)
	courses.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, err := courses.resolve(ctx, a)
	if err != nil {
		return err
	}
	res, err := a.canvas.AllAssignments(ctx, ids, canvas.AllAssignmentsOptions{MaxWorkers: *workers, SkipWeights: *noWeights})
	if err != nil {
		return err
	}
	return a.emit(ctx, out, result{resource: "assignments", table: res.Table, courseIDs: ids, runID: res.RunID, failures: res.Failures})
}

func fetchPeers(ctx context.Context, a *app, courses *courseFlags, workers int, global bool) ([]int64, *canvas.MultiResult, error) {
	ids, err := courses.resolve(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	mode := canvas.UniquePerCourse
	if global {
		mode = canvas.UniqueGlobal
	}
	res, err := a.canvas.AllPeers(ctx, ids, canvas.AllPeersOptions{MaxWorkers: workers, Mode: mode})
	return ids, res, err
}

func runPeers(ctx context.Context, a *app, args []string) error {
	var (
		out     outputFlags
		courses courseFlags
	)
	fs := newFlagSet(a, "peers")
	global := fs.Bool("global", false, "one row per user instead of one per user and course")
	workers := fs.Int("workers", a.cfg.Workers.Peers, "concurrent course fetches")
	out.register(fs)
	courses.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, res, err := fetchPeers(ctx, a, &courses, *workers, *global)
	if err != nil {
		return err
	}
	return a.emit(ctx, out, result{resource: "peers", table: res.Table, courseIDs: ids, runID: res.RunID, failures: res.Failures})
}

func runBestFriends(ctx context.Context, a *app, args []string) error {
	var (
		out     outputFlags
		courses courseFlags
	)
	defaults := views.DefaultBestFriendsOptions()
	fs := newFlagSet(a, "best-friends")
	topN := fs.Int("top-n", defaults.TopN, "number of classmates to show (0 for all)")
	studentsOnly := fs.Bool("students-only", false, "ignore teachers and TAs")
	workers := fs.Int("workers", a.cfg.Workers.Peers, "concurrent course fetches")
	out.register(fs)
	courses.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, res, err := fetchPeers(ctx, a, &courses, *workers, false)
	if err != nil {
		return err
	}
	ranked, err := views.BestFriends(res.Table, a.canvas.Session().Identity(), views.BestFriendsOptions{TopN: *topN, StudentsOnly: *studentsOnly})
	if err != nil {
		return err
	}
	return a.emit(ctx, out, result{resource: "best_friends", table: ranked, courseIDs: ids, runID: res.RunID, failures: res.Failures})
}

func runUpcoming(ctx context.Context, a *app, args []string) error {
	var (
		out     outputFlags
		courses courseFlags
	)
	defaults := views.DefaultUpcomingOptions()
	fs := newFlagSet(a, "upcoming")
	days := fs.Int("days", defaults.Days, "days to look ahead")
	includeSubmitted := fs.Bool("include-submitted", !defaults.ExcludeSubmitted, "keep assignments you already submitted")
	out.register(fs)
	courses.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, err := courses.resolve(ctx, a)
	if err != nil {
		return err
	}
	res, err := a.canvas.UpcomingAssignments(ctx, ids, views.UpcomingOptions{Days: *days, ExcludeSubmitted: !*includeSubmitted})
	if err != nil {
		return err
	}
	return a.emit(ctx, out, result{resource: "upcoming", table: res.Table, courseIDs: ids, runID: res.RunID, failures: res.Failures})
}

// emit reports skipped courses, writes the table and optionally publishes it.
func (a *app) emit(ctx context.Context, out outputFlags, res result) error {
	for _, f := range res.failures {
		fmt.Fprintf(a.stderr, "skipped course %d (%s): %v\n", f.Key, f.Reason, f.Err)
	}

	data := export.FromTable(res.resource, res.table, canvas.DateColumns...)

	var (
		body []byte
		err  error
	)
	switch out.format {
	case "csv":
		body, err = export.NewCSVExporter().Render(data)
	case "xlsx":
		body, err = export.NewXLSXExporter().Render(data)
	default:
		return fmt.Errorf("unknown format %q (want csv or xlsx)", out.format)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", out.format, err)
	}

	if out.path == "" {
		if _, err := a.stdout.Write(body); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else if err := os.WriteFile(out.path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out.path, err)
	}

	a.logger.Info().
		Str("resource", res.resource).
		Int("rows", res.table.Len()).
		Int("failed_courses", len(res.failures)).
		Str("courses", joinIDs(res.courseIDs)).
		Msg("Export complete")

	if !out.publish {
		return nil
	}

	store, closeStore, err := a.newSnapshotStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	key := snapshot.Key{
		Resource:  res.resource,
		CallerID:  a.canvas.Session().Identity().ID,
		CourseIDs: res.courseIDs,
		RunID:     res.runID,
	}
	entry, err := store.Put(ctx, key, res.table, a.cfg.Snapshot.TTL)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	fmt.Fprintf(a.stderr, "published snapshot %s\n", entry.Key)
	return nil
}
