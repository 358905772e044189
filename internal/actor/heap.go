package actor

import (
	"container/heap"
	"time"
)

// timerEntry 延迟消息条目
type timerEntry[M any] struct {
	deadline time.Time
	seq      uint64 // 同一截止时间按投递顺序出队
	key      string
	msg      M
	index    int // 在堆中的位置，heap.Remove 需要
}

// timerHeap 按 (deadline, seq) 排序的最小堆，实现 heap.Interface
type timerHeap[M any] []*timerEntry[M]

func (h timerHeap[M]) Len() int { return len(h) }

func (h timerHeap[M]) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap[M]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap[M]) Push(x any) {
	e, ok := x.(*timerEntry[M])
	if !ok {
		return
	}
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap[M]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// peek 返回最早到期的条目，堆为空时返回 nil
func (h timerHeap[M]) peek() *timerEntry[M] {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// remove 从堆中移除指定条目
func (h *timerHeap[M]) remove(e *timerEntry[M]) {
	if e.index >= 0 && e.index < h.Len() {
		heap.Remove(h, e.index)
	}
}
