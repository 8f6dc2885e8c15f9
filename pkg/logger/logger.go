package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Setup 初始化全局日志配置
// levelStr: "debug", "info", "warn", "error"
// logPath: 日志文件路径，追加写入，文件不存在则创建 (为空则只输出到控制台)
//
// 每条日志输出为 "[YYYY-MM-DD HH:MM:SS] 消息 key=value ..." 的形式，
// 同时写到控制台和日志文件
func Setup(levelStr string, logPath string) error {
	// 1. 解析日志等级
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// 2. 配置输出目标
	var writer io.Writer = os.Stdout

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}

		// 同时输出到控制台和文件
		writer = io.MultiWriter(os.Stdout, file)
	}

	// 3. 设置为全局默认 Logger
	slog.SetDefault(slog.New(newPlainHandler(writer, level)))
	return nil
}

// plainHandler 输出带括号时间戳的单行日志
// slog 自带的 TextHandler 无法产出这种格式，所以这里手写一个
type plainHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

func newPlainHandler(w io.Writer, level slog.Level) *plainHandler {
	return &plainHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *plainHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Time.Format("2006-01-02 15:04:05"), r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &plainHandler{mu: h.mu, w: h.w, level: h.level, attrs: merged}
}

func (h *plainHandler) WithGroup(string) slog.Handler {
	// 分组在这种扁平格式里没有意义，原样返回
	return h
}
