package copytrade

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const lineTimeFormat = "2006-01-02 15:04:05"

// LogEntry 一条引擎日志
type LogEntry struct {
	Seq     uint64
	Time    time.Time
	Level   logrus.Level
	Message string
}

// Line 格式化为 "2006-01-02 15:04:05 - INFO - message"
func (e LogEntry) Line() string {
	return e.Time.Format(lineTimeFormat) + " - " + strings.ToUpper(e.Level.String()) + " - " + e.Message
}

// LogSink 有界环形日志缓冲，满后丢弃最旧的条目
// 每条日志同时写入进程级 logrus
type LogSink struct {
	mu      sync.Mutex
	buf     []LogEntry
	head    int // 最旧条目位置
	size    int
	seq     uint64
	changed chan struct{}

	mirror *logrus.Entry
	now    func() time.Time
}

// NewLogSink 创建容量为 capacity 的缓冲；mirror 为空时不转发
func NewLogSink(capacity int, mirror *logrus.Entry) *LogSink {
	if capacity <= 0 {
		capacity = 1
	}
	return &LogSink{
		buf:     make([]LogEntry, capacity),
		changed: make(chan struct{}),
		mirror:  mirror,
		now:     time.Now,
	}
}

func (s *LogSink) append(level logrus.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	s.mu.Lock()
	s.seq++
	e := LogEntry{Seq: s.seq, Time: s.now(), Level: level, Message: msg}
	n := len(s.buf)
	if s.size < n {
		s.buf[(s.head+s.size)%n] = e
		s.size++
	} else {
		s.buf[s.head] = e
		s.head = (s.head + 1) % n
	}
	// 唤醒所有等待者
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.Log(level, msg)
	}
}

func (s *LogSink) Infof(format string, args ...any)  { s.append(logrus.InfoLevel, format, args...) }
func (s *LogSink) Warnf(format string, args ...any)  { s.append(logrus.WarnLevel, format, args...) }
func (s *LogSink) Errorf(format string, args ...any) { s.append(logrus.ErrorLevel, format, args...) }

// Entries 按时间从旧到新返回副本
func (s *LogSink) Entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinceLocked(0)
}

// Lines 格式化后的日志副本
func (s *LogSink) Lines() []string {
	entries := s.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Line()
	}
	return out
}

// Since 返回 seq 之后的条目，以及一个在下一次写入时关闭的通道
func (s *LogSink) Since(seq uint64) ([]LogEntry, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinceLocked(seq), s.changed
}

func (s *LogSink) sinceLocked(seq uint64) []LogEntry {
	n := len(s.buf)
	out := make([]LogEntry, 0, s.size)
	for i := 0; i < s.size; i++ {
		e := s.buf[(s.head+i)%n]
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}
