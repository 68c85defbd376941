package cache

import (
	"math"
	"time"
)

// priorityQueue implements container/heap.Interface over entry
// pointers, ordering by ascending score (lowest score evicted first),
// tie-broken by oldest lastAccessed, per spec §4.5.
type priorityQueue[K comparable, V any] struct {
	items []*entry[K, V]
	opt   Options
}

func (pq *priorityQueue[K, V]) Len() int { return len(pq.items) }

func (pq *priorityQueue[K, V]) Less(i, j int) bool {
	si := score(pq.items[i], pq.opt)
	sj := score(pq.items[j], pq.opt)
	if si != sj {
		return si < sj
	}
	return pq.items[i].lastAccessed.Before(pq.items[j].lastAccessed)
}

func (pq *priorityQueue[K, V]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].heapIndex = i
	pq.items[j].heapIndex = j
}

func (pq *priorityQueue[K, V]) Push(x any) {
	e := x.(*entry[K, V])
	e.heapIndex = len(pq.items)
	pq.items = append(pq.items, e)
}

func (pq *priorityQueue[K, V]) Pop() any {
	n := len(pq.items)
	e := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	e.heapIndex = -1
	return e
}

// score computes α·recencyNorm + β·frequencyNorm + γ·weight −
// δ·ageDecay (spec §4.5). recencyNorm decays exponentially with time
// since lastAccessed; frequencyNorm saturates with accessCount;
// ageDecay grows with total age since createdAt, also saturating.
func score[K comparable, V any](e *entry[K, V], opt Options) float64 {
	now := time.Now()

	recencyNorm := 1.0
	if opt.RecencyHalfLife > 0 {
		elapsed := now.Sub(e.lastAccessed).Seconds()
		halfLife := opt.RecencyHalfLife.Seconds()
		recencyNorm = expDecay(elapsed, halfLife)
	}

	frequencyNorm := float64(e.accessCount) / (float64(e.accessCount) + opt.FrequencySmoothing)

	ageDecay := 0.0
	if opt.AgeHalfLife > 0 {
		age := now.Sub(e.createdAt).Seconds()
		halfLife := opt.AgeHalfLife.Seconds()
		ageDecay = age / (age + halfLife)
	}

	return opt.Alpha*recencyNorm + opt.Beta*frequencyNorm + opt.Gamma*e.weight - opt.Delta*ageDecay
}

// expDecay returns exp(-elapsed*ln(2)/halfLife), i.e. 1.0 at elapsed=0
// decaying to 0.5 at elapsed=halfLife.
func expDecay(elapsed, halfLife float64) float64 {
	if halfLife <= 0 {
		return 1
	}
	const ln2 = 0.6931471805599453
	return math.Exp(-elapsed * ln2 / halfLife)
}
