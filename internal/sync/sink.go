package sync

import (
	"log/slog"
	"sync"
)

// SlogSink 把事件写入全局 slog (控制台 + 日志文件由 logger 包统一配置)
type SlogSink struct{}

func NewSlogSink() *SlogSink {
	return &SlogSink{}
}

func (s *SlogSink) Report(e Event) {
	switch e.Kind {
	case EventCreatedDir:
		slog.Info("创建目录", "path", e.Detail)
	case EventCreatedFile:
		slog.Info("复制新文件", "path", e.Path, "dest", e.Detail)
	case EventUpdatedFile:
		slog.Info("更新文件", "path", e.Path, "dest", e.Detail)
	case EventDeletedFile:
		slog.Info("删除文件", "path", e.Detail)
	case EventDeletedDir:
		slog.Info("删除目录", "path", e.Detail)
	case EventError:
		slog.Error("同步条目出错", "path", e.Path, "err", e.Detail)
	}
}

// MultiSink 把同一事件分发给多个下游
type MultiSink []Sink

func (m MultiSink) Report(e Event) {
	for _, s := range m {
		s.Report(e)
	}
}

// MemorySink 在内存中记录全部事件，供测试断言使用
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Report(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events 返回已记录事件的副本
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Reset 清空记录 (便于多轮断言)
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// nopSink 未注入 Sink 时的兜底实现
type nopSink struct{}

func (nopSink) Report(Event) {}
