package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dirmirror/internal/config"
	"dirmirror/internal/journal"
	syncer "dirmirror/internal/sync"
	"dirmirror/pkg/logger"
)

var (
	flagConfig   string
	flagSource   string
	flagDest     string
	flagInterval int
	flagLog      string
	flagOnce     bool

	flagJournal string
	flagLimit   int
)

var rootCmd = &cobra.Command{
	Use:   "dirmirror",
	Short: "单向目录镜像备份工具",
	Long: `dirmirror 按固定间隔把源目录单向镜像到目标目录：
每轮同步后目标目录与源目录内容一致，源端不存在的条目会被移除。
所有变更和错误都会带时间戳写入控制台与日志文件。`,
	SilenceUsage: true,
	RunE:         run,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查看历史库中最近的同步记录",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "yaml 配置文件路径 (命令行参数优先)")
	rootCmd.Flags().StringVarP(&flagSource, "source", "s", "", "源目录路径")
	rootCmd.Flags().StringVarP(&flagDest, "dest", "d", "", "目标目录路径")
	rootCmd.Flags().IntVarP(&flagInterval, "interval", "i", 0, "同步间隔 (秒)")
	rootCmd.Flags().StringVarP(&flagLog, "log", "l", "", "日志文件路径")
	rootCmd.Flags().BoolVar(&flagOnce, "once", false, "只执行一轮同步后退出")

	historyCmd.Flags().StringVar(&flagJournal, "journal", "", "历史库路径")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 10, "显示条数")
	rootCmd.AddCommand(historyCmd)
}

// loadConfig 合并配置文件与命令行参数，参数优先
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("source") {
		cfg.Source = flagSource
	}
	if cmd.Flags().Changed("dest") {
		cfg.Dest = flagDest
	}
	if cmd.Flags().Changed("interval") {
		cfg.IntervalSec = flagInterval
	}
	if cmd.Flags().Changed("log") {
		cfg.LogFile = flagLog
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := logger.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}

	slog.Info("目录镜像启动")
	slog.Info("源目录", "path", cfg.Source)
	slog.Info("目标目录", "path", cfg.Dest)
	slog.Info("同步间隔", "seconds", cfg.IntervalSec)
	slog.Info("日志文件", "path", cfg.LogFile)

	// 首轮同步前确保目标根目录存在
	if err := os.MkdirAll(cfg.Dest, 0755); err != nil {
		return fmt.Errorf("无法创建目标目录: %w", err)
	}

	var jnl *journal.Journal
	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer jnl.Close()
	}

	engine := syncer.NewEngine(&syncer.Options{
		SourceDir:  cfg.Source,
		DestDir:    cfg.Dest,
		Sink:       syncer.NewSlogSink(),
		Excludes:   cfg.Exclude,
		MaxWorkers: cfg.MaxWorkers,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if flagOnce {
		return doPass(ctx, engine, jnl)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	var isSyncing atomic.Bool

	runPass := func(appCtx context.Context) {
		if !isSyncing.CompareAndSwap(false, true) {
			slog.Info("上一轮同步尚未结束，跳过本次触发")
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer isSyncing.Store(false)

			// 单轮失败只记录，进程继续等待下个周期重试
			if err := doPass(appCtx, engine, jnl); err != nil {
				slog.Error("本轮同步无法开始", "err", err)
			}
		}()
	}

	// 立即运行一次
	runPass(ctx)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runPass(ctx)
		case sig := <-sigChan:
			slog.Info("接收到信号，准备退出...", "signal", sig)
			cancel()
			wg.Wait()
			slog.Info("目录镜像已停止")
			return nil
		}
	}
}

// doPass 执行一轮同步并记录汇总
func doPass(ctx context.Context, engine *syncer.Engine, jnl *journal.Journal) error {
	start := time.Now()

	rep, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("同步完成",
		"actions", rep.Total(),
		"errors", rep.Errors,
		"copied", humanize.Bytes(uint64(rep.BytesCopied)),
		"duration", rep.Duration.Round(time.Millisecond),
	)

	if jnl != nil {
		rec := &journal.PassRecord{
			StartedAt:    start,
			DurationMS:   rep.Duration.Milliseconds(),
			CreatedDirs:  rep.CreatedDirs,
			CreatedFiles: rep.CreatedFiles,
			UpdatedFiles: rep.UpdatedFiles,
			DeletedFiles: rep.DeletedFiles,
			DeletedDirs:  rep.DeletedDirs,
			Errors:       rep.Errors,
			BytesCopied:  rep.BytesCopied,
		}
		if err := jnl.Append(rec); err != nil {
			slog.Warn("写入历史库失败", "err", err)
		}
	}
	return nil
}

func runHistory(_ *cobra.Command, _ []string) error {
	path := flagJournal
	if path == "" && flagConfig != "" {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		path = cfg.JournalPath
	}
	if path == "" {
		return fmt.Errorf("必须通过 --journal 或配置文件指定历史库路径")
	}

	jnl, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer jnl.Close()

	records, err := jnl.Recent(flagLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("暂无同步记录")
		return nil
	}

	for _, r := range records {
		fmt.Printf("#%d %s 新建目录=%d 新文件=%d 更新=%d 删除文件=%d 删除目录=%d 错误=%d 复制=%s 耗时=%dms\n",
			r.Seq,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.CreatedDirs, r.CreatedFiles, r.UpdatedFiles,
			r.DeletedFiles, r.DeletedDirs, r.Errors,
			humanize.Bytes(uint64(r.BytesCopied)),
			r.DurationMS,
		)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
