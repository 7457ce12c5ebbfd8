package copytrade

import "github.com/betbot/polycopy/internal/activity"

// Ledger 已处理成交哈希的有界集合，超出容量按插入顺序淘汰最旧的
// 仅由所属引擎的 goroutine 访问，不加锁
type Ledger struct {
	cap   int
	order []string // 插入顺序（环形）
	head  int
	seen  map[string]struct{}
}

// NewLedger 创建容量为 capacity 的账本
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ledger{
		cap:   capacity,
		order: make([]string, 0, capacity),
		seen:  make(map[string]struct{}, capacity),
	}
}

// Contains 哈希是否已处理
func (l *Ledger) Contains(hash string) bool {
	_, ok := l.seen[hash]
	return ok
}

// Len 当前记录数
func (l *Ledger) Len() int {
	return len(l.seen)
}

// Mark 记录哈希；已存在则不变，超出容量淘汰最旧
func (l *Ledger) Mark(hash string) {
	if hash == "" || l.Contains(hash) {
		return
	}
	l.seen[hash] = struct{}{}
	if len(l.order) < l.cap {
		l.order = append(l.order, hash)
		return
	}
	delete(l.seen, l.order[l.head])
	l.order[l.head] = hash
	l.head = (l.head + 1) % l.cap
}

// Seed 记录一批（新到旧排列的）记录而不处理；从最旧开始写入，保证最新的留在窗口内
func (l *Ledger) Seed(records []activity.Record) int {
	n := 0
	for i := len(records) - 1; i >= 0; i-- {
		h := records[i].TransactionHash
		if h == "" || l.Contains(h) {
			continue
		}
		l.Mark(h)
		n++
	}
	return n
}

// Filter 返回未处理过的记录，保持原顺序；无哈希的记录丢弃，同批重复只保留第一条
func (l *Ledger) Filter(records []activity.Record) []activity.Record {
	out := make([]activity.Record, 0, len(records))
	batch := make(map[string]struct{}, len(records))
	for _, r := range records {
		h := r.TransactionHash
		if h == "" || l.Contains(h) {
			continue
		}
		if _, dup := batch[h]; dup {
			continue
		}
		batch[h] = struct{}{}
		out = append(out, r)
	}
	return out
}
