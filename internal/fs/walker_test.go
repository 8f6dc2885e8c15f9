package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree 构造固定的测试目录树:
//
//	a.txt
//	sub/b.txt
//	sub/deep/c.txt
//	zdir/          (空目录)
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "zdir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "c.txt"), []byte("c"), 0644))
	return root
}

func collect(t *testing.T, root string, order Order) []string {
	t.Helper()
	var got []string
	err := Walk(root, order, func(e Entry) bool {
		got = append(got, e.RelPath)
		return true
	}, func(rel string, err error) {
		t.Fatalf("意外的遍历错误 %s: %v", rel, err)
	})
	require.NoError(t, err)
	return got
}

func TestWalkPreOrder(t *testing.T) {
	root := buildTree(t)

	// 根最先，同级目录先于文件，顺序稳定
	assert.Equal(t, []string{
		".",
		"sub", "zdir", "a.txt",
		"sub/deep", "sub/b.txt",
		"sub/deep/c.txt",
	}, collect(t, root, PreOrder))
}

func TestWalkPostOrder(t *testing.T) {
	root := buildTree(t)
	got := collect(t, root, PostOrder)

	// 根最后，每个目录都晚于它的全部子项
	assert.Equal(t, []string{
		"sub/deep/c.txt", "sub/deep", "sub/b.txt", "sub",
		"zdir", "a.txt",
		".",
	}, got)

	pos := make(map[string]int, len(got))
	for i, p := range got {
		pos[p] = i
	}
	assert.Less(t, pos["sub/deep/c.txt"], pos["sub/deep"])
	assert.Less(t, pos["sub/deep"], pos["sub"])
	assert.Less(t, pos["sub/b.txt"], pos["sub"])
}

func TestWalkDeterministic(t *testing.T) {
	root := buildTree(t)
	first := collect(t, root, PreOrder)
	second := collect(t, root, PreOrder)
	assert.Equal(t, first, second)
}

func TestWalkMissingRootIsEmptyTree(t *testing.T) {
	var visited int
	err := Walk(filepath.Join(t.TempDir(), "not-there"), PreOrder, func(Entry) bool {
		visited++
		return true
	}, func(string, error) {
		t.Fatal("不应有错误上报")
	})
	require.NoError(t, err)
	assert.Zero(t, visited)
}

func TestWalkRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := Walk(path, PreOrder, func(Entry) bool { return true }, func(string, error) {})
	assert.Error(t, err)
}

func TestWalkPreOrderSkipSubtree(t *testing.T) {
	root := buildTree(t)

	var got []string
	err := Walk(root, PreOrder, func(e Entry) bool {
		got = append(got, e.RelPath)
		return e.RelPath != "sub" // 跳过 sub 子树
	}, func(string, error) {})
	require.NoError(t, err)

	assert.Contains(t, got, "sub")
	assert.NotContains(t, got, "sub/b.txt")
	assert.NotContains(t, got, "sub/deep")
	assert.Contains(t, got, "a.txt")
}

func TestWalkDirVanishesMidWalk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "zz"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "zz", "zz.txt"), []byte("z"), 0644))

	var got, errPaths []string
	err := Walk(root, PreOrder, func(e Entry) bool {
		got = append(got, e.RelPath)
		if e.RelPath == "sub" {
			// 访问之后、深入之前，目录被外部删除
			require.NoError(t, os.RemoveAll(filepath.Join(root, "sub")))
		}
		return true
	}, func(rel string, err error) {
		errPaths = append(errPaths, rel)
	})
	require.NoError(t, err)

	// 消失的目录只上报一次，其余部分照常遍历
	assert.Equal(t, []string{"sub"}, errPaths)
	assert.Contains(t, got, "zz/zz.txt")
	assert.NotContains(t, got, "sub/b.txt")
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()

	dir := filepath.Join(root, "fresh")
	created, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.True(t, created)

	// 已存在时不重复创建
	created, err = EnsureDir(dir)
	require.NoError(t, err)
	assert.False(t, created)

	// 同名文件会被目录替换
	occupied := filepath.Join(root, "occupied")
	require.NoError(t, os.WriteFile(occupied, []byte("x"), 0644))
	created, err = EnsureDir(occupied)
	require.NoError(t, err)
	assert.True(t, created)
	info, err := os.Stat(occupied)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopyFilePreservesContentAndModTime(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	assert.EqualValues(t, len("payload"), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	dstInfo, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()))
}
