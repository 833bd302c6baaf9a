package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/formula-trainer/internal/config"
	"github.com/stellarlinkco/formula-trainer/internal/reminder"
	"github.com/stellarlinkco/formula-trainer/internal/report"
	"github.com/stellarlinkco/formula-trainer/internal/shell"
	"github.com/stellarlinkco/formula-trainer/internal/store"
	"github.com/stellarlinkco/formula-trainer/internal/trainer"
	"golang.org/x/term"
)

// AppOptions carries injectable IO for the command handlers (tests pass buffers).
type AppOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (o AppOptions) withDefaults() AppOptions {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

var rootCmd = &cobra.Command{
	Use:           "formula-trainer",
	Short:         "formula-trainer - drill math formulas from a flat file",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMenu,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics and formulas",
	RunE:  runList,
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run one training session and print the statistics",
	RunE:  runTrain,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run the menu, then write a statistics snapshot to a SQLite file",
	RunE:  runExport,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Show upcoming practice reminders or keep printing them",
	RunE:  runRemind,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config and a sample formulas file",
	RunE:  runInit,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show formula-trainer status",
	RunE:  runStatus,
}

var (
	formulasFlag string
	formatFlag   string
	seedFlag     uint64
	verboseFlag  bool

	topicsFlag     []string
	exportDBFlag   string
	exportListFlag bool
	exportIDFlag   string
	remindNextFlag int
	remindWatch    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&formulasFlag, "formulas", "f", "", "Formulas file (topic|name|expression per line)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "", "Statistics format: text, json or yaml")
	rootCmd.PersistentFlags().Uint64Var(&seedFlag, "seed", 0, "Random seed for formula selection (0 = time based)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Write diagnostic log to stderr")

	trainCmd.Flags().StringSliceVarP(&topicsFlag, "topic", "t", nil, "Topic to train (repeatable; default all topics)")
	exportCmd.Flags().StringVar(&exportDBFlag, "db", "", "SQLite file for snapshots")
	exportCmd.Flags().BoolVar(&exportListFlag, "list", false, "List snapshots already stored in the file")
	exportCmd.Flags().StringVar(&exportIDFlag, "id", "", "Show the entries of one stored snapshot")
	remindCmd.Flags().IntVarP(&remindNextFlag, "next", "n", 5, "Number of upcoming reminders to show")
	remindCmd.Flags().BoolVar(&remindWatch, "watch", false, "Keep running and print reminders when due")

	rootCmd.AddCommand(listCmd, trainCmd, exportCmd, remindCmd, initCmd, statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadRuntimeConfig applies command-line flags on top of the loaded config.
func loadRuntimeConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if formulasFlag != "" {
		cfg.Formulas.Path = formulasFlag
	}
	if formatFlag != "" {
		cfg.Report.Format = formatFlag
	}
	if seedFlag != 0 {
		cfg.Training.Seed = seedFlag
	}
	if verboseFlag {
		cfg.Log.Verbose = true
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, stderr io.Writer) {
	if cfg.Log.Verbose {
		log.SetOutput(stderr)
		return
	}
	log.SetOutput(io.Discard)
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// loadTrainer reads the formulas file. A missing file is fatal: there is
// nothing to train without formulas.
func loadTrainer(cfg *config.Config, stdout, stderr io.Writer) (*trainer.Trainer, error) {
	tr := trainer.New()
	res, err := tr.LoadFile(cfg.Formulas.Path)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading formulas: %v\n", err)
		fmt.Fprintln(stderr, "Cannot continue without formulas.")
		if errors.Is(err, trainer.ErrSourceNotFound) {
			fmt.Fprintln(stderr, "Run 'formula-trainer init' to create a sample file or pass --formulas.")
		}
		return nil, fmt.Errorf("load formulas: %w", err)
	}
	for _, rej := range res.Rejected {
		fmt.Fprintf(stdout, "Format error in line %d: %s\n", rej.Number, rej.Text)
	}
	fmt.Fprintln(stdout, "Formulas loaded successfully.")
	return tr, nil
}

func newShell(cfg *config.Config, tr *trainer.Trainer, opts AppOptions) (*shell.Shell, error) {
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return nil, err
	}
	return shell.New(tr, shell.Options{
		In:        opts.Stdin,
		Out:       opts.Stdout,
		Rand:      newRand(cfg.Training.Seed),
		ExitWords: cfg.Training.ExitWords,
		AllWords:  cfg.Training.AllWords,
		Format:    format,
		Echo:      scriptedInput(opts.Stdin),
	}), nil
}

// scriptedInput reports whether stdin is a file or pipe rather than a terminal.
func scriptedInput(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return !term.IsTerminal(int(f.Fd()))
}

func runMenu(cmd *cobra.Command, args []string) error {
	return runMenuWithOptions(commandContext(cmd), AppOptions{})
}

func runMenuWithOptions(ctx context.Context, opts AppOptions) error {
	opts = opts.withDefaults()
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg, opts.Stderr)

	tr, err := loadTrainer(cfg, opts.Stdout, opts.Stderr)
	if err != nil {
		return err
	}
	sh, err := newShell(cfg, tr, opts)
	if err != nil {
		return err
	}
	return sh.Run(ctx)
}

func runList(cmd *cobra.Command, args []string) error {
	return runListWithOptions(AppOptions{})
}

func runListWithOptions(opts AppOptions) error {
	opts = opts.withDefaults()
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg, opts.Stderr)

	tr, err := loadTrainer(cfg, io.Discard, opts.Stderr)
	if err != nil {
		return err
	}
	sh, err := newShell(cfg, tr, opts)
	if err != nil {
		return err
	}
	sh.ShowTopics()
	return nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	return runTrainWithOptions(commandContext(cmd), AppOptions{})
}

func runTrainWithOptions(ctx context.Context, opts AppOptions) error {
	opts = opts.withDefaults()
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg, opts.Stderr)

	tr, err := loadTrainer(cfg, opts.Stdout, opts.Stderr)
	if err != nil {
		return err
	}
	sh, err := newShell(cfg, tr, opts)
	if err != nil {
		return err
	}

	topics := topicsFlag
	if len(topics) == 0 {
		topics = tr.Topics()
	}
	if _, err := sh.Train(ctx, topics); err != nil {
		return err
	}
	return sh.PrintStatistics(nil)
}

func runExport(cmd *cobra.Command, args []string) error {
	return runExportWithOptions(commandContext(cmd), AppOptions{})
}

func runExportWithOptions(ctx context.Context, opts AppOptions) error {
	opts = opts.withDefaults()
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg, opts.Stderr)

	dbPath := cfg.Export.DBPath
	if exportDBFlag != "" {
		dbPath = exportDBFlag
	}

	if exportListFlag || exportIDFlag != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer st.Close()
		if exportIDFlag != "" {
			return printSnapshotEntries(ctx, st, exportIDFlag, opts.Stdout)
		}
		return printSnapshots(ctx, st, opts.Stdout)
	}

	tr, err := loadTrainer(cfg, opts.Stdout, opts.Stderr)
	if err != nil {
		return err
	}
	sh, err := newShell(cfg, tr, opts)
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer st.Close()

	if err := sh.Run(ctx); err != nil {
		return err
	}

	snap := store.NewSnapshot(cfg.Formulas.Path, tr.Statistics())
	if last, ok := sh.LastSession(); ok {
		snap.SessionID = last.ID
	}
	// The menu may have ended through a signal; the snapshot is still written.
	id, err := st.WriteSnapshot(context.WithoutCancel(ctx), snap)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(opts.Stdout, "Snapshot %s written to %s\n", id, dbPath)
	return nil
}

func printSnapshots(ctx context.Context, st *store.Store, w io.Writer) error {
	headers, err := st.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	if len(headers) == 0 {
		fmt.Fprintln(w, "No snapshots stored.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTAKEN AT\tFORMULAS\tCORRECT\tINCORRECT\tSOURCE")
	for _, h := range headers {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", h.ID, h.TakenAt, h.Formulas, h.TotalCorrect, h.TotalIncorrect, h.Source)
	}
	return tw.Flush()
}

func printSnapshotEntries(ctx context.Context, st *store.Store, id string, w io.Writer) error {
	entries, err := st.Entries(ctx, id)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(w, "No entries for snapshot %s.\n", id)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOPIC\tNAME\tCORRECT\tINCORRECT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", e.Topic, e.Name, e.Correct, e.Incorrect)
	}
	return tw.Flush()
}

func runRemind(cmd *cobra.Command, args []string) error {
	return runRemindWithOptions(commandContext(cmd), AppOptions{})
}

func runRemindWithOptions(ctx context.Context, opts AppOptions) error {
	opts = opts.withDefaults()
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg, opts.Stderr)

	svc, err := reminder.NewService(cfg.Reminder.Schedule, opts.Stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.Stdout, "Practice schedule: %s\n", svc.Expr())
	for _, at := range svc.Next(time.Now(), remindNextFlag) {
		fmt.Fprintf(opts.Stdout, "  %s\n", at.Format("Mon 2006-01-02 15:04"))
	}
	if !remindWatch {
		return nil
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()
	fmt.Fprintln(opts.Stdout, "Waiting for reminders (Ctrl+C to stop)...")
	<-ctx.Done()
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	return runInitWithOptions(AppOptions{})
}

func runInitWithOptions(opts AppOptions) error {
	opts = opts.withDefaults()
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(opts.Stdout, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(opts.Stdout, "Config already exists: %s\n", cfgPath)
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Formulas.Path), 0755); err != nil {
		return fmt.Errorf("create formulas dir: %w", err)
	}
	writeIfNotExists(opts.Stdout, cfg.Formulas.Path, sampleFormulas)

	fmt.Fprintln(opts.Stdout, "\nNext steps:")
	fmt.Fprintf(opts.Stdout, "  1. Add your formulas to %s (topic|name|expression)\n", cfg.Formulas.Path)
	fmt.Fprintln(opts.Stdout, "  2. Run 'formula-trainer' to open the menu")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	return runStatusWithOptions(AppOptions{})
}

func runStatusWithOptions(opts AppOptions) error {
	opts = opts.withDefaults()
	out := opts.Stdout

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintf(out, "Config: error (%v)\n", err)
		return nil
	}
	setupLogging(cfg, opts.Stderr)

	fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
	fmt.Fprintf(out, "Formulas file: %s\n", cfg.Formulas.Path)
	fmt.Fprintf(out, "Report format: %s\n", cfg.Report.Format)
	fmt.Fprintf(out, "Exit words: %s\n", strings.Join(cfg.Training.ExitWords, ", "))

	tr := trainer.New()
	if res, err := tr.LoadFile(cfg.Formulas.Path); err != nil {
		fmt.Fprintln(out, "Formulas: not found (run 'formula-trainer init')")
	} else {
		fmt.Fprintf(out, "Formulas: %d in %d topics", tr.Len(), len(tr.Topics()))
		if n := len(res.Rejected); n > 0 {
			fmt.Fprintf(out, " (%d malformed lines)", n)
		}
		fmt.Fprintln(out)
	}

	if svc, err := reminder.NewService(cfg.Reminder.Schedule, nil); err != nil {
		fmt.Fprintf(out, "Reminder: invalid schedule %q\n", cfg.Reminder.Schedule)
	} else if next := svc.Next(time.Now(), 1); len(next) > 0 {
		fmt.Fprintf(out, "Next reminder: %s\n", next[0].Format("Mon 2006-01-02 15:04"))
	}
	return nil
}

func writeIfNotExists(w io.Writer, path, content string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = os.WriteFile(path, []byte(content), 0644)
		fmt.Fprintf(w, "  Created: %s\n", path)
	}
}

const sampleFormulas = `# topic|name|expression
# Lines starting with # are comments. A '|' inside an expression is not supported.

Algebra|Quadratic formula|x = (-b ± √(b² - 4ac)) / 2a
Algebra|Square of a sum|(a + b)² = a² + 2ab + b²
Algebra|Difference of squares|a² - b² = (a - b)(a + b)
Geometry|Circle area|A = πr²
Geometry|Pythagorean theorem|a² + b² = c²
Trigonometry|Pythagorean identity|sin²x + cos²x = 1
Trigonometry|Double angle (sine)|sin 2x = 2 sin x cos x
`
