package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config 镜像守护进程的全部配置
// 可由 yaml 配置文件提供，也可由命令行参数提供 (参数优先)
type Config struct {
	Source      string   `yaml:"source"`       // 源目录
	Dest        string   `yaml:"dest"`         // 目标目录
	IntervalSec int      `yaml:"interval"`     // 同步间隔 (整秒)
	LogFile     string   `yaml:"log_file"`     // 日志文件路径
	LogLevel    string   `yaml:"log_level"`    // debug / info / warn / error
	Exclude     []string `yaml:"exclude"`      // doublestar 排除模式，两端均不可见
	MaxWorkers  int      `yaml:"max_workers"`  // 阶段一复制并发数，默认 1 (串行)
	JournalPath string   `yaml:"journal_path"` // 历史库路径，留空则不记录

	// 解析后的间隔，不出现在 yaml 中
	Interval time.Duration `yaml:"-"`
}

// Load 读取并解析配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 格式错误: %w", err)
	}

	return &cfg, nil
}

// Validate 校验必填项并做归一化转换
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("必须指定源目录 (source)")
	}
	if c.Dest == "" {
		return fmt.Errorf("必须指定目标目录 (dest)")
	}
	if c.LogFile == "" {
		return fmt.Errorf("必须指定日志文件路径 (log_file)")
	}
	if c.IntervalSec < 1 {
		return fmt.Errorf("同步间隔必须不小于 1 秒 (interval)")
	}
	c.Interval = time.Duration(c.IntervalSec) * time.Second

	source, err := filepath.Abs(c.Source)
	if err != nil {
		return fmt.Errorf("无法解析源目录路径: %w", err)
	}
	dest, err := filepath.Abs(c.Dest)
	if err != nil {
		return fmt.Errorf("无法解析目标目录路径: %w", err)
	}
	c.Source = source
	c.Dest = dest

	if source == dest {
		return fmt.Errorf("源目录和目标目录不能相同")
	}
	// 目标目录嵌在源目录里会导致镜像自我复制
	if rel, err := filepath.Rel(source, dest); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("目标目录不能位于源目录内部: %s", dest)
	}

	for _, pat := range c.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("无效的排除模式: %s", pat)
		}
	}

	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return nil
}
