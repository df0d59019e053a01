package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/abishek0504/iron-path-app-sub003/internal/envstruct"
	"github.com/abishek0504/iron-path-app-sub003/internal/errors"
	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
	"github.com/abishek0504/iron-path-app-sub003/internal/seed"
	"github.com/abishek0504/iron-path-app-sub003/internal/sqlite"
	"github.com/abishek0504/iron-path-app-sub003/internal/training"
)

type config struct {
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"IRONPATH_SQLITE_URL" envDefault:"./ironpath.sqlite3"`
	// SeedPath is an optional YAML catalog applied before the command runs.
	SeedPath string `env:"IRONPATH_SEED_PATH" envDefault:""`
	// LookbackSessions is the number of completed sessions the gap check analyses.
	LookbackSessions int `env:"IRONPATH_LOOKBACK_SESSIONS" envDefault:"6"`
	// MinGapMuscles is the number of missed muscles that triggers a rebalance.
	MinGapMuscles int `env:"IRONPATH_MIN_GAP_MUSCLES" envDefault:"1"`
	// StressWindowDays is how far back muscle stress is summed when generating from the allow-list.
	StressWindowDays int `env:"IRONPATH_STRESS_WINDOW_DAYS" envDefault:"7"`
	// LogLevel is one of debug, info, warn and error.
	LogLevel string `env:"IRONPATH_LOG_LEVEL" envDefault:"info"`
}

var errUsage = errors.NewSentinel("usage")

const usage = `usage: planner <command> [flags]

commands:
  seed      apply a YAML catalog (-file, defaults to IRONPATH_SEED_PATH)
  resolve   print the effective exercise (-user, -exercise | -custom)
  band      print a prescription band (-exercise, -tier, -mode)
  target    select a target for one exercise (-user, -exercise, -tier, -history)
  targets   select targets for many exercises (-user, -exercises, -tier)
  history   print the history summary of an exercise (-user, -exercise)
  day       generate a training day (-user, -tier, -candidates id:priority,... | allow-list)
  gaps      check recent sessions for untrained muscles (-user)
  stress    print accumulated muscle stress (-user, -days)
  export    copy a user's training data into a new SQLite file (-user, -dir)`

// app bundles the dependencies shared by the commands.
type app struct {
	cfg     config
	logger  *slog.Logger
	db      *sqlite.Database
	service *training.Service
	out     io.Writer
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	level *slog.LevelVar,
	lookupEnv func(string) (string, bool),
	args []string,
	out io.Writer,
) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if err = level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return errors.Wrap(err, "parse log level", slog.String("level", cfg.LogLevel))
	}

	if len(args) == 0 {
		return fmt.Errorf("%w: missing command\n%s", errUsage, usage)
	}
	command, commandArgs := args[0], args[1:]
	ctx = logging.WithAttrs(ctx, slog.String("command", command))

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelDebug, "connected to db")

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		service: training.NewService(db, logger),
		out:     out,
	}

	// Seeding from the environment lets every command run against a fresh in-memory database.
	if cfg.SeedPath != "" && command != "seed" {
		if err = a.applySeed(ctx, cfg.SeedPath); err != nil {
			return err
		}
	}

	commands := map[string]func(context.Context, []string) error{
		"seed":    a.seed,
		"resolve": a.resolve,
		"band":    a.band,
		"target":  a.target,
		"targets": a.targets,
		"history": a.history,
		"day":     a.day,
		"gaps":    a.gaps,
		"stress":  a.stress,
		"export":  a.export,
	}
	cmd, ok := commands[command]
	if !ok {
		return fmt.Errorf("%w: unknown command %q\n%s", errUsage, command, usage)
	}
	if err = cmd(ctx, commandArgs); err != nil {
		return errors.Wrap(err, "run command", slog.String("command", command))
	}
	return nil
}

func (a *app) applySeed(ctx context.Context, path string) error {
	doc, err := seed.LoadFile(path)
	if err != nil {
		return errors.Wrap(err, "load seed", slog.String("path", path))
	}
	if err = seed.Apply(ctx, a.db, a.logger, doc); err != nil {
		return errors.Wrap(err, "apply seed", slog.String("path", path))
	}
	if err = a.db.Optimize(ctx); err != nil {
		return errors.Wrap(err, "optimize after seed")
	}
	return nil
}

// writeJSON prints v as indented JSON.
func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", errUsage, fs.Name(), err)
	}
	return nil
}

func (a *app) seed(ctx context.Context, args []string) error {
	fs := newFlagSet("seed")
	file := fs.String("file", a.cfg.SeedPath, "YAML catalog to apply")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: seed needs -file or IRONPATH_SEED_PATH", errUsage)
	}
	if err := a.applySeed(ctx, *file); err != nil {
		return err
	}
	a.logger.LogAttrs(ctx, slog.LevelInfo, "seeded database", slog.String("path", *file))
	return nil
}

func (a *app) resolve(ctx context.Context, args []string) error {
	fs := newFlagSet("resolve")
	user := fs.String("user", "", "user id")
	exercise := fs.String("exercise", "", "master exercise id")
	custom := fs.String("custom", "", "custom exercise id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	ex, err := a.service.Resolve(ctx, *user, training.ExerciseRef{ExerciseID: *exercise, CustomExerciseID: *custom})
	if err != nil {
		return err
	}
	return a.writeJSON(ex)
}

func (a *app) band(ctx context.Context, args []string) error {
	fs := newFlagSet("band")
	exercise := fs.String("exercise", "", "exercise id")
	tier := fs.String("tier", string(training.TierBeginner), "experience tier")
	mode := fs.String("mode", string(training.ModeReps), "reps or timed")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	band, err := a.service.GetBand(ctx, *exercise, training.ExperienceTier(*tier), training.Mode(*mode))
	if err != nil {
		return err
	}
	return a.writeJSON(band)
}

func (a *app) target(ctx context.Context, args []string) error {
	fs := newFlagSet("target")
	user := fs.String("user", "", "user id")
	exercise := fs.String("exercise", "", "exercise id")
	tier := fs.String("tier", string(training.TierBeginner), "experience tier")
	history := fs.Int("history", 0, "completed sessions containing the exercise, -1 to look it up")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	historyCount := *history
	if historyCount < 0 {
		h, err := a.service.History(ctx, *user, training.ExerciseRef{ExerciseID: *exercise})
		if err != nil {
			return err
		}
		historyCount = h.SessionCount
	}

	target, err := a.service.SelectTarget(ctx, *user, *exercise, training.ExperienceTier(*tier), historyCount)
	if err != nil {
		return err
	}
	return a.writeJSON(target)
}

func (a *app) targets(ctx context.Context, args []string) error {
	fs := newFlagSet("targets")
	user := fs.String("user", "", "user id")
	exercises := fs.String("exercises", "", "comma separated exercise ids")
	tier := fs.String("tier", string(training.TierBeginner), "experience tier")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	bulk, err := a.service.SelectTargets(ctx, *user, splitList(*exercises), training.ExperienceTier(*tier), nil)
	if err != nil {
		return err
	}
	return a.writeJSON(bulk)
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := newFlagSet("history")
	user := fs.String("user", "", "user id")
	exercise := fs.String("exercise", "", "master exercise id")
	custom := fs.String("custom", "", "custom exercise id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	h, err := a.service.History(ctx, *user, training.ExerciseRef{ExerciseID: *exercise, CustomExerciseID: *custom})
	if err != nil {
		return err
	}
	return a.writeJSON(h)
}

func (a *app) day(ctx context.Context, args []string) error {
	fs := newFlagSet("day")
	user := fs.String("user", "", "user id")
	tier := fs.String("tier", string(training.TierBeginner), "experience tier")
	list := fs.String("candidates", "", "comma separated id:priority pairs, defaults to the allow-list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	window := time.Duration(a.cfg.StressWindowDays) * 24 * time.Hour //nolint:mnd // day
	if *list == "" {
		generated, err := a.service.GenerateDayFromAllowList(ctx, *user, training.ExperienceTier(*tier), window)
		if err != nil {
			return err
		}
		return a.writeJSON(generated)
	}

	candidates, err := parseCandidates(*list)
	if err != nil {
		return err
	}
	stress, err := a.service.MuscleStress(ctx, *user, time.Now().Add(-window))
	if err != nil {
		return err
	}
	generated, err := a.service.GenerateDay(ctx, *user, training.ExperienceTier(*tier), candidates, stress)
	if err != nil {
		return err
	}
	return a.writeJSON(generated)
}

func (a *app) gaps(ctx context.Context, args []string) error {
	fs := newFlagSet("gaps")
	user := fs.String("user", "", "user id")
	lookback := fs.Int("lookback", a.cfg.LookbackSessions, "completed sessions to analyse")
	minGap := fs.Int("min-gap", a.cfg.MinGapMuscles, "missed muscles that trigger a rebalance")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	return a.writeJSON(a.service.DetectGaps(ctx, *user, *lookback, *minGap))
}

func (a *app) stress(ctx context.Context, args []string) error {
	fs := newFlagSet("stress")
	user := fs.String("user", "", "user id")
	days := fs.Int("days", a.cfg.StressWindowDays, "trailing window in days")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	since := time.Now().AddDate(0, 0, -*days)
	stress, err := a.service.MuscleStress(ctx, *user, since)
	if err != nil {
		return err
	}
	return a.writeJSON(stress)
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	user := fs.String("user", "", "user id")
	dir := fs.String("dir", ".", "directory to write the export to")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path, err := a.db.ExportUser(ctx, *user, *dir)
	if err != nil {
		return errors.Wrap(err, "export user", slog.String("user_id", *user))
	}
	return a.writeJSON(map[string]string{"path": path})
}

func splitList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseCandidates parses "id:priority" pairs. A missing priority ranks the candidate by its position.
func parseCandidates(s string) ([]training.Candidate, error) {
	items := splitList(s)
	candidates := make([]training.Candidate, 0, len(items))
	for i, item := range items {
		id, priorityText, hasPriority := strings.Cut(item, ":")
		priority := i + 1
		if hasPriority {
			var err error
			if priority, err = strconv.Atoi(priorityText); err != nil {
				return nil, fmt.Errorf("%w: candidate %q has invalid priority", errUsage, item)
			}
		}
		candidates = append(candidates, training.Candidate{ExerciseID: id, Priority: priority})
	}
	return candidates, nil
}

func main() {
	ctx := context.Background()
	level := new(slog.LevelVar)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))
	if err := run(ctx, logger, level, os.LookupEnv, os.Args[1:], os.Stdout); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "planner failed", errors.SlogError(err))
		os.Exit(1)
	}
}
