package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"dirmirror/internal/fingerprint"
	"dirmirror/internal/fs"
)

// Options 初始化选项
type Options struct {
	SourceDir string   // 源目录
	DestDir   string   // 目标目录 (镜像端)
	Sink      Sink     // 事件接收方，nil 时事件被丢弃
	Excludes  []string // doublestar 排除模式，匹配到的路径在两端都视为不存在
	// 阶段一文件复制的并发数，<=1 时完全串行 (默认且推荐)
	// 并行只作用于单个文件的指纹计算与复制，阶段边界始终保持串行
	MaxWorkers int
}

// Report 单轮同步的汇总结果
type Report struct {
	CreatedDirs  int
	CreatedFiles int
	UpdatedFiles int
	DeletedFiles int
	DeletedDirs  int
	Errors       int
	BytesCopied  int64
	Duration     time.Duration
}

// Total 返回本轮实际执行的动作总数 (不含错误)
func (r *Report) Total() int {
	return r.CreatedDirs + r.CreatedFiles + r.UpdatedFiles + r.DeletedFiles + r.DeletedDirs
}

// Engine 单向镜像同步引擎
// 每轮同步都是一次完整的独立比对，轮与轮之间不保留任何状态
type Engine struct {
	opts   *Options
	source string // 绝对路径
	dest   string

	mu  sync.Mutex // 保护 Report 计数与事件上报的原子性
	rep *Report
}

func NewEngine(opts *Options) *Engine {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}

	source, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		source = opts.SourceDir
	}
	dest, err := filepath.Abs(opts.DestDir)
	if err != nil {
		dest = opts.DestDir
	}

	return &Engine{opts: opts, source: source, dest: dest}
}

// Run 执行一次完整的镜像同步
//
// 返回错误仅表示本轮无法开始 (源目录缺失或不是目录)；
// 单个条目的失败通过 Sink 上报为 Error 事件并继续处理其余条目，
// 调用方看到的是一轮"已完成" (可能带错误计数) 的同步。
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	info, err := os.Stat(e.source)
	if err != nil {
		return nil, fmt.Errorf("源目录不可用: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("源路径不是目录: %s", e.source)
	}

	start := time.Now()
	e.rep = &Report{}

	// 阶段一必须完整结束后阶段二才能开始：
	// 剪枝判断依赖源端内容已经全部落到目标端
	e.propagate(ctx)
	e.prune(ctx)

	e.rep.Duration = time.Since(start)
	return e.rep, nil
}

// propagate 阶段一：自顶向下把源端的结构与内容同步到目标端
// 目录先于同级文件处理，保证复制文件时所在目录已经就位
func (e *Engine) propagate(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(e.opts.MaxWorkers)

	err := fs.Walk(e.source, fs.PreOrder, func(ent fs.Entry) bool {
		if ctx.Err() != nil {
			return false
		}
		if e.excluded(ent.RelPath) {
			return false
		}

		if ent.Kind == fs.KindDir {
			// 目录创建失败时跳过整棵子树，其下的复制注定无法成功
			return e.ensureDestDir(ent.RelPath)
		}

		if e.opts.MaxWorkers <= 1 {
			e.syncFile(ent.RelPath)
			return true
		}
		g.Go(func() error {
			e.syncFile(ent.RelPath)
			return nil
		})
		return true
	}, func(rel string, err error) {
		e.reportError(rel, fmt.Errorf("扫描源目录出错: %w", err))
	})
	if err != nil {
		e.reportError(".", err)
	}

	g.Wait()
}

// ensureDestDir 确保目标端存在 rel 对应的目录，返回 false 表示子树应跳过
func (e *Engine) ensureDestDir(rel string) bool {
	dst := fs.SysPath(e.dest, rel)
	created, err := fs.EnsureDir(dst)
	if err != nil {
		e.reportError(rel, err)
		return false
	}
	if created {
		e.emit(Event{Kind: EventCreatedDir, Path: rel, Detail: dst})
	}
	return true
}

// syncFile 处理源端单个文件：新增则复制，内容不一致则覆盖，一致则不动
func (e *Engine) syncFile(rel string) {
	src := fs.SysPath(e.source, rel)
	dst := fs.SysPath(e.dest, rel)

	srcSum, err := fingerprint.File(src)
	if err != nil {
		// 源文件读不了：上报后跳过，目标端该路径保持原样
		e.reportError(rel, err)
		return
	}

	info, err := os.Stat(dst)
	switch {
	case os.IsNotExist(err):
		e.copyFile(src, dst, rel, EventCreatedFile)
	case err != nil:
		// 目标端状态未知，按内容不一致处理，尝试重新复制
		e.copyFile(src, dst, rel, EventUpdatedFile)
	case info.IsDir():
		// 源端是文件而目标端是目录：镜像以源端为准，整棵子树让位
		// 子树的移除单独上报，不能无声地吞掉
		if err := os.RemoveAll(dst); err != nil {
			e.reportError(rel, fmt.Errorf("移除同名目录失败: %w", err))
			return
		}
		e.emit(Event{Kind: EventDeletedDir, Path: rel, Detail: dst})
		e.copyFile(src, dst, rel, EventCreatedFile)
	default:
		dstSum, err := fingerprint.File(dst)
		if err != nil {
			// 指纹算不出来视为内容不同，强制覆盖一次
			e.reportError(rel, err)
			e.copyFile(src, dst, rel, EventUpdatedFile)
			return
		}
		if dstSum != srcSum {
			e.copyFile(src, dst, rel, EventUpdatedFile)
		}
	}
}

func (e *Engine) copyFile(src, dst, rel string, kind EventKind) {
	n, err := fs.CopyFile(src, dst)
	e.finishCopy(rel, dst, n, err, kind)
}

// finishCopy 统一处理复制结果
// 时间戳恢复失败属于软错误：内容已经一致，上报错误之余仍计为一次成功复制
func (e *Engine) finishCopy(rel, dst string, n int64, err error, kind EventKind) {
	if err != nil {
		e.reportError(rel, err)
		if !errors.Is(err, fs.ErrPreserveTime) {
			return
		}
	}
	e.mu.Lock()
	e.rep.BytesCopied += n
	e.mu.Unlock()
	e.emit(Event{Kind: kind, Path: rel, Detail: dst})
}

// prune 阶段二：自底向上移除目标端在源端已不存在的条目
//
// 只在"剪枝根"上动手：父目录在源端仍然存在、自身不存在的条目。
// 更深处的条目随其子树根一次性删除，只上报一条 DeletedDir 事件，
// 不为子树内部的每个后代单独上报。
func (e *Engine) prune(ctx context.Context) {
	err := fs.Walk(e.dest, fs.PostOrder, func(ent fs.Entry) bool {
		if ctx.Err() != nil {
			return false
		}
		if ent.RelPath == "." || e.excluded(ent.RelPath) {
			return true
		}
		if e.inSource(ent.RelPath, ent.Kind) {
			return true
		}
		if !e.inSource(fs.Parent(ent.RelPath), fs.KindDir) {
			// 祖先也要被剪掉，等遍历到子树根时统一删除
			return true
		}

		dst := fs.SysPath(e.dest, ent.RelPath)
		if ent.Kind == fs.KindDir {
			if err := os.RemoveAll(dst); err != nil {
				e.reportError(ent.RelPath, fmt.Errorf("删除目录失败: %w", err))
				return true
			}
			e.emit(Event{Kind: EventDeletedDir, Path: ent.RelPath, Detail: dst})
		} else {
			if err := os.Remove(dst); err != nil {
				e.reportError(ent.RelPath, fmt.Errorf("删除文件失败: %w", err))
				return true
			}
			e.emit(Event{Kind: EventDeletedFile, Path: ent.RelPath, Detail: dst})
		}
		return true
	}, func(rel string, err error) {
		e.reportError(rel, fmt.Errorf("扫描目标目录出错: %w", err))
	})
	if err != nil {
		e.reportError(".", err)
	}
}

// inSource 判断源端是否存在 rel 对应的同类条目
func (e *Engine) inSource(rel string, kind fs.Kind) bool {
	if rel == "." {
		return true
	}
	info, err := os.Stat(fs.SysPath(e.source, rel))
	if err != nil {
		return false
	}
	return info.IsDir() == (kind == fs.KindDir)
}

// excluded 判断 rel 或其任一祖先是否命中排除模式
func (e *Engine) excluded(rel string) bool {
	if len(e.opts.Excludes) == 0 || rel == "." {
		return false
	}
	for p := rel; p != "."; p = fs.Parent(p) {
		for _, pat := range e.opts.Excludes {
			if ok, _ := doublestar.Match(pat, p); ok {
				return true
			}
		}
	}
	return false
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	switch ev.Kind {
	case EventCreatedDir:
		e.rep.CreatedDirs++
	case EventCreatedFile:
		e.rep.CreatedFiles++
	case EventUpdatedFile:
		e.rep.UpdatedFiles++
	case EventDeletedFile:
		e.rep.DeletedFiles++
	case EventDeletedDir:
		e.rep.DeletedDirs++
	case EventError:
		e.rep.Errors++
	}
	e.mu.Unlock()

	e.opts.Sink.Report(ev)
}

func (e *Engine) reportError(rel string, err error) {
	e.emit(Event{Kind: EventError, Path: rel, Detail: err.Error()})
}
