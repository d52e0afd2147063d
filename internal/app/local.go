package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/growmind/internal/auth"
	"github.com/hitoshi/growmind/internal/config"
	"github.com/hitoshi/growmind/internal/database"
	"github.com/hitoshi/growmind/internal/focus"
	"github.com/hitoshi/growmind/internal/model"
	"github.com/hitoshi/growmind/internal/repository"
)

// LocalOptions はlocalサブコマンドの引数。
type LocalOptions struct {
	User      string
	Minutes   int
	DBPath    string
	ExportDir string
}

// ParseLocalFlags はlocalサブコマンドの引数を解析する。
// 既定値はcfgから取る。-userは必須。
func ParseLocalFlags(args []string, cfg *config.Config, stderr io.Writer) (LocalOptions, error) {
	var opts LocalOptions

	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.User, "user", "", "ユーザー名（集計値の保存先）")
	fs.IntVar(&opts.Minutes, "minutes", cfg.DefaultDurationMinutes, "セッションの長さ（分）")
	fs.StringVar(&opts.DBPath, "db", cfg.LocalDBPath, "SQLiteファイルのパス")
	fs.StringVar(&opts.ExportDir, "export", ".", "CSVを書き出すディレクトリ")

	if err := fs.Parse(args); err != nil {
		return LocalOptions{}, err
	}

	name, err := auth.NewService(nil, nil, auth.ServiceConfig{}).NormalizeUsername(opts.User)
	if err != nil {
		return LocalOptions{}, err
	}
	opts.User = name

	if opts.Minutes <= 0 || opts.Minutes > focus.MaxDurationMinutes {
		return LocalOptions{}, model.NewInvalidDurationError(opts.Minutes)
	}

	return opts, nil
}

// localRunner は端末で1回分のカウントダウンを実行する。
type localRunner struct {
	out      io.Writer
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	engine   focus.Options
}

// runLocal はSQLiteを開いて1回分のセッションを実行する。
func runLocal(ctx context.Context, cfg *config.Config, opts LocalOptions, out io.Writer) error {
	db, err := database.OpenSQLite(opts.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	scheduler := focus.NewTickerScheduler()
	defer scheduler.Stop()

	r := &localRunner{
		out:      out,
		logger:   slog.Default(),
		location: cfg.ExportLocation,
		now:      time.Now,
		engine: focus.Options{
			Scheduler:      scheduler,
			TickInterval:   cfg.TickInterval,
			StorageTimeout: cfg.StorageTimeout,
		},
	}
	_, err = r.run(ctx, repository.NewSQLiteKVStore(db), opts)
	return err
}

// terminalObserver はティックと完了をチャネルで通知する。
// エンジンのロック中に呼ばれるため、送信はブロックしない。
type terminalObserver struct {
	focus.NopObserver
	ticks     chan struct{}
	completed chan struct{}
}

func newTerminalObserver() *terminalObserver {
	return &terminalObserver{
		ticks:     make(chan struct{}, 1),
		completed: make(chan struct{}, 1),
	}
}

func (o *terminalObserver) TimerTick() {
	select {
	case o.ticks <- struct{}{}:
	default:
	}
}

func (o *terminalObserver) SessionCompleted(model.FocusSession) {
	select {
	case o.completed <- struct{}{}:
	default:
	}
}

// run はカウントダウンを実行し、完了したらCSVを書き出してそのパスを返す。
// ctxがキャンセルされた場合はタイマーを止め、集計値を変更せずに戻る。
func (r *localRunner) run(ctx context.Context, kv repository.KVStore, opts LocalOptions) (string, error) {
	obs := newTerminalObserver()

	engineOpts := r.engine
	engineOpts.Observer = obs
	engineOpts.Logger = r.logger

	store := focus.NewProgressStore(kv, r.logger, nil)
	engine := focus.NewEngine(ctx, store, opts.User, engineOpts)
	defer engine.Close()

	engine.SetDuration(opts.Minutes)
	fmt.Fprintf(r.out, "%s: %d min focus session (%s tree)\n",
		opts.User, opts.Minutes, model.ClassifyTreeType(opts.Minutes))
	fmt.Fprintf(r.out, "\r%s", engine.Snapshot().Formatted)
	engine.Start()

	for {
		select {
		case <-ctx.Done():
			engine.Pause()
			fmt.Fprintf(r.out, "\ninterrupted at %s, session not recorded\n", engine.Snapshot().Formatted)
			return "", nil
		case <-obs.ticks:
			snap := engine.Snapshot()
			fmt.Fprintf(r.out, "\r%s  %3.0f%%", snap.Formatted, snap.GrowthPercent)
		case <-obs.completed:
			return r.finish(engine, opts.ExportDir)
		}
	}
}

// finish は完了後の集計値を表示し、履歴CSVを書き出す。
func (r *localRunner) finish(engine *focus.Engine, dir string) (string, error) {
	p := engine.Progress()

	fmt.Fprintf(r.out, "\r%s  100%%\n", focus.FormatTime(0))
	fmt.Fprintln(r.out, "session complete")
	fmt.Fprintf(r.out, "sessions: %d  streak: %d  total: %d min\n",
		p.SessionCount, p.Streak, p.TotalFocusedMinutes)

	path, err := r.writeExport(engine, dir)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(r.out, "history written to %s\n", path)
	return path, nil
}

func (r *localRunner) writeExport(engine *focus.Engine, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	loc := r.location
	if loc == nil {
		loc = time.Local
	}
	path := filepath.Join(dir, focus.DownloadFileName(r.now().In(loc)))
	if err := os.WriteFile(path, []byte(engine.ExportCSV(loc)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
