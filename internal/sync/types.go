package sync

// EventKind 定义同步事件类型
type EventKind int

const (
	EventCreatedDir  EventKind = iota // 目标端新建了目录
	EventCreatedFile                  // 复制了源端新文件
	EventUpdatedFile                  // 覆盖了内容已变更的文件
	EventDeletedFile                  // 删除了目标端多余文件
	EventDeletedDir                   // 删除了目标端多余目录 (整棵子树一条事件)
	EventError                        // 单个条目处理出错
)

func (k EventKind) String() string {
	switch k {
	case EventCreatedDir:
		return "created_dir"
	case EventCreatedFile:
		return "created_file"
	case EventUpdatedFile:
		return "updated_file"
	case EventDeletedFile:
		return "deleted_file"
	case EventDeletedDir:
		return "deleted_dir"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event 代表一次可观测的同步动作
type Event struct {
	Kind   EventKind
	Path   string // 相对路径 (统一使用 "/" 作为分隔符)
	Detail string // 附加信息：目标端绝对路径或错误描述
}

// Sink 接收引擎产生的事件，由调用方注入
// 实现负责格式化与持久化，引擎本身不关心日志的具体形态
// Report 不应长时间阻塞，否则会拖慢整轮同步
type Sink interface {
	Report(e Event)
}
