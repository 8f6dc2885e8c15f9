package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotAccessible 表示文件无法打开或读取 (权限不足、被并发删除、I/O 错误等)
// 调用方应把计算失败的指纹当作"内容未知"处理，而不是让整轮同步失败
var ErrNotAccessible = errors.New("文件不可访问")

// 流式读取的块大小
const chunkSize = 8192

// File 计算文件内容的 MD5 指纹
// 按固定大小的块流式读取，内存占用与文件大小无关
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotAccessible, path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotAccessible, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
