package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrPreserveTime 表示内容已复制成功，只有修改时间没能恢复
// 属于软错误：目标文件内容与源端一致，调用方决定如何上报
var ErrPreserveTime = errors.New("无法恢复文件修改时间")

// CopyFile 把 src 的内容复制到 dst (存在则覆盖)，并保留源文件的修改时间
// 返回复制的字节数
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("打开源文件失败: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("读取源文件信息失败: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("创建目标文件失败: %w", err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("写入数据失败: %w", err)
	}

	// 关闭文件以刷入磁盘，之后才能修改时间戳
	if err := out.Close(); err != nil {
		return n, err
	}

	// 恢复修改时间，保持和源文件一致
	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return n, fmt.Errorf("%w: %s: %v", ErrPreserveTime, dst, err)
	}

	return n, nil
}

// EnsureDir 确保 path 是一个已存在的目录
// 返回 true 表示目录是本次新建的
// 若该位置被同名文件占住，先移除文件再建目录 (镜像以源端结构为准)
func EnsureDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, nil
		}
		if err := os.Remove(path); err != nil {
			return false, fmt.Errorf("移除同名文件失败: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("无法访问目录: %w", err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return false, fmt.Errorf("创建目录失败: %w", err)
	}
	return true, nil
}
