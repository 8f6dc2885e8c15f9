package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// BucketName 是数据库中的"表名"
	BucketName = "PassHistory"
)

// PassRecord 一轮同步结束后的汇总记录
// 存入数据库时序列化为 JSON；引擎本身不读取这些记录，
// 它们只服务于 history 查询与排障，每轮同步仍是完整的独立比对
type PassRecord struct {
	Seq          uint64    `json:"seq"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedDirs  int       `json:"created_dirs"`
	CreatedFiles int       `json:"created_files"`
	UpdatedFiles int       `json:"updated_files"`
	DeletedFiles int       `json:"deleted_files"`
	DeletedDirs  int       `json:"deleted_dirs"`
	Errors       int       `json:"errors"`
	BytesCopied  int64     `json:"bytes_copied"`
}

// Journal 封装 BoltDB 实例，按写入顺序保存每轮同步的汇总
type Journal struct {
	conn *bbolt.DB
}

// Open 初始化并打开历史库，文件不存在则创建
// Timeout 选项防止两个进程同时打开同一个数据库导致死锁
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开历史库失败: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("创建 Bucket 失败: %w", err)
	}

	return &Journal{conn: db}, nil
}

// Close 关闭数据库连接
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Append 追加一条同步记录，序号由数据库自增生成
func (j *Journal) Append(rec *PassRecord) error {
	return j.conn.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("序列化失败: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Recent 按从新到旧的顺序返回最近 n 条记录
// n 不为正时返回空结果，命令行传入的条数不可信
func (j *Journal) Recent(n int) ([]*PassRecord, error) {
	if n < 0 {
		n = 0
	}
	result := make([]*PassRecord, 0, n)

	err := j.conn.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketName)).Cursor()

		for k, v := c.Last(); k != nil && len(result) < n; k, v = c.Prev() {
			var rec PassRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("解析记录失败 seq=%d: %w", binary.BigEndian.Uint64(k), err)
			}
			result = append(result, &rec)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}
