package fs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Kind 条目类型
type Kind int

const (
	KindDir  Kind = iota // 目录
	KindFile             // 普通文件
)

// Order 遍历顺序
type Order int

const (
	// PreOrder 先访问目录自身，再访问其子项 (自顶向下)
	PreOrder Order = iota
	// PostOrder 先访问子项，再访问目录自身 (自底向上)
	PostOrder
)

// Entry 遍历过程中产出的一个条目
type Entry struct {
	RelPath string // 相对根目录的路径 (统一使用 "/" 作为分隔符，根目录为 ".")
	Kind    Kind
}

// WalkFunc 处理单个条目
// 对目录返回 false 表示跳过整棵子树 (仅 PreOrder 下生效)
type WalkFunc func(e Entry) bool

// ErrFunc 上报遍历过程中单个条目的读取错误
type ErrFunc func(relPath string, err error)

// Walk 按指定顺序遍历 root 下的全部条目，根目录自身也会被访问
// (PreOrder 最先、PostOrder 最后)
//
// root 不存在时视为空树，直接返回 nil —— 首次运行时目标目录可以尚未创建。
// 单个子目录读取失败通过 onErr 上报并跳过，不会中断整体遍历；
// 只有 root 自身无法使用才返回错误。
//
// 同级条目按文件名排序访问 (os.ReadDir 保证)，且目录排在文件之前，
// 这样复制文件前其所在目录一定已经被访问过。
func Walk(root string, order Order, fn WalkFunc, onErr ErrFunc) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("无法访问根目录 %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("路径不是目录: %s", root)
	}

	if order == PreOrder {
		if !fn(Entry{RelPath: ".", Kind: KindDir}) {
			return nil
		}
		walkDir(root, ".", order, fn, onErr)
		return nil
	}

	walkDir(root, ".", order, fn, onErr)
	fn(Entry{RelPath: ".", Kind: KindDir})
	return nil
}

// walkDir 遍历 rel 目录的内容，rel 自身由调用方负责访问
func walkDir(root, rel string, order Order, fn WalkFunc, onErr ErrFunc) {
	entries, err := os.ReadDir(SysPath(root, rel))
	if err != nil {
		// 目录在遍历途中消失或不可读：上报后跳过，继续其余部分
		onErr(rel, err)
		return
	}

	var dirs, files []string
	for _, ent := range entries {
		if ent.IsDir() {
			dirs = append(dirs, ent.Name())
		} else {
			files = append(files, ent.Name())
		}
	}

	switch order {
	case PreOrder:
		// 先访问全部子目录条目，再访问文件，最后才深入子目录
		descend := make([]string, 0, len(dirs))
		for _, name := range dirs {
			if fn(Entry{RelPath: join(rel, name), Kind: KindDir}) {
				descend = append(descend, name)
			}
		}
		for _, name := range files {
			fn(Entry{RelPath: join(rel, name), Kind: KindFile})
		}
		for _, name := range descend {
			walkDir(root, join(rel, name), order, fn, onErr)
		}
	case PostOrder:
		// 子项在前，目录自身在后
		for _, name := range dirs {
			sub := join(rel, name)
			walkDir(root, sub, order, fn, onErr)
			fn(Entry{RelPath: sub, Kind: KindDir})
		}
		for _, name := range files {
			fn(Entry{RelPath: join(rel, name), Kind: KindFile})
		}
	}
}

func join(rel, name string) string {
	if rel == "." {
		return name
	}
	return rel + "/" + name
}

// SysPath 把统一格式的相对路径转换为本地系统绝对路径
// 输入: "docs/file.txt" -> 输出 (Windows): "D:\Data\docs\file.txt"
func SysPath(root, rel string) string {
	if rel == "." {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Parent 返回相对路径的父目录 ("a/b/c" -> "a/b"，顶层条目返回 ".")
func Parent(rel string) string {
	return path.Dir(rel)
}
