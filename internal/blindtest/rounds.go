package blindtest

import (
	"sync"
)

// pendingRound 一轮已执行、尚未投票的盲测。swap 映射只存在内存里，
// 投票落库之前不对外暴露哪边是哪个物理模型。
type pendingRound struct {
	QuestionID      string
	Index           int
	Swap            bool // true 表示模型 B 的回答展示在左侧
	Question        string
	LeftAnswer      string
	RightAnswer     string
	LeftError       string
	RightError      string
	LeftDurationMs  int64
	RightDurationMs int64
}

// roundStore 进行中轮次的内存存储，按 task_id 索引。
// 一个任务同一时刻最多一轮待投票。
type roundStore struct {
	mu     sync.RWMutex
	rounds map[string]pendingRound
	locks  map[string]*sync.Mutex
}

func newRoundStore() *roundStore {
	return &roundStore{
		rounds: make(map[string]pendingRound),
		locks:  make(map[string]*sync.Mutex),
	}
}

// taskLock 返回任务粒度的互斥锁，同一任务的轮次执行串行化
func (s *roundStore) taskLock(taskID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[taskID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[taskID] = l
	}
	return l
}

func (s *roundStore) get(taskID string) (pendingRound, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[taskID]
	return r, ok
}

func (s *roundStore) put(taskID string, r pendingRound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[taskID] = r
}

func (s *roundStore) remove(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, taskID)
	delete(s.locks, taskID)
}
