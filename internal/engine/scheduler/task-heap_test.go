package scheduler

import (
	"testing"
	"time"

	"github.com/talkweave/engine/internal/assert"
)

func noop() error { return nil }

func task(path taskPath, at time.Time) *Task {
	return &Task{Func: noop, At: at, Path: path}
}

func TestTaskHeapOrdering(t *testing.T) {
	as := assert.New(t)
	now := time.Now()

	h := NewTaskHeap()
	h.Insert(task(taskPath{"c"}, now.Add(3*time.Second)))
	h.Insert(task(taskPath{"a"}, now.Add(time.Second)))
	h.Insert(task(taskPath{"b"}, now.Add(2*time.Second)))

	as.Equal(3, h.Len())
	as.Equal(taskPath{"a"}, h.Peek().Path)
	as.Equal(taskPath{"a"}, h.PopTask().Path)
	as.Equal(taskPath{"b"}, h.PopTask().Path)
	as.Equal(taskPath{"c"}, h.PopTask().Path)
	as.Nil(h.PopTask())
}

func TestTaskHeapKeyedReplacement(t *testing.T) {
	as := assert.New(t)
	now := time.Now()

	h := NewTaskHeap()
	h.Insert(task(taskPath{"bot", "s1"}, now.Add(time.Minute)))
	h.Insert(task(taskPath{"bot", "s1"}, now.Add(time.Second)))

	// the same path replaces in place rather than duplicating
	as.Equal(1, h.Len())
	as.Equal(now.Add(time.Second), h.Peek().At)
}

func TestTaskHeapCancel(t *testing.T) {
	as := assert.New(t)
	now := time.Now()

	h := NewTaskHeap()
	h.Insert(task(taskPath{"bot", "s1"}, now.Add(time.Second)))
	h.Insert(task(taskPath{"bot", "s2"}, now.Add(2*time.Second)))

	h.Cancel(taskPath{"bot", "s1"})
	as.Equal(1, h.Len())
	as.Equal(taskPath{"bot", "s2"}, h.Peek().Path)

	h.Cancel(taskPath{"bot", "missing"})
	as.Equal(1, h.Len())
}

func TestTaskHeapCancelPrefix(t *testing.T) {
	as := assert.New(t)
	now := time.Now()

	h := NewTaskHeap()
	h.Insert(task(taskPath{"bot1", "s1"}, now.Add(time.Second)))
	h.Insert(task(taskPath{"bot1", "s2"}, now.Add(2*time.Second)))
	h.Insert(task(taskPath{"bot2", "s3"}, now.Add(3*time.Second)))

	h.CancelPrefix(taskPath{"bot1"})
	as.Equal(1, h.Len())
	as.Equal(taskPath{"bot2", "s3"}, h.Peek().Path)
}

func TestTaskHeapRejectsIncompleteTasks(t *testing.T) {
	as := assert.New(t)

	h := NewTaskHeap()
	h.Insert(nil)
	h.Insert(&Task{Func: noop})
	h.Insert(&Task{At: time.Now()})
	as.Equal(0, h.Len())
}
