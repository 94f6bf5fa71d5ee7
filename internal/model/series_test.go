package model

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func candleAt(i int, close float64, closed bool) Candle {
	return Candle{
		Symbol:   "BTCUSDT",
		OpenTime: t0.Add(time.Duration(i) * time.Minute),
		Open:     close, High: close, Low: close, Close: close,
		Volume: 1,
		Closed: closed,
	}
}

func TestSeries_AppendsNewBuckets(t *testing.T) {
	s := NewSeries(10)
	s.Apply(candleAt(0, 100, true))
	s.Apply(candleAt(1, 101, true))
	s.Apply(candleAt(2, 102, true))

	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	closes := s.Closes()
	want := []float64{100, 101, 102}
	for i := range want {
		if closes[i] != want[i] {
			t.Errorf("closes[%d] = %v, want %v", i, closes[i], want[i])
		}
	}
}

func TestSeries_FormingCandleReplacedInPlace(t *testing.T) {
	s := NewSeries(10)
	s.Apply(candleAt(0, 100, true))

	// Live updates of the same bucket overwrite, length stays fixed.
	s.Apply(candleAt(1, 101, false))
	s.Apply(candleAt(1, 103, false))
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	last, _ := s.Last()
	if last.Close != 103 {
		t.Errorf("forming close = %v, want 103", last.Close)
	}

	// The close of the bucket seals it.
	s.Apply(candleAt(1, 102, true))
	last, _ = s.Last()
	if last.Close != 102 || !last.Closed {
		t.Errorf("sealed candle = %+v", last)
	}
}

func TestSeries_ClosedResendIgnored(t *testing.T) {
	s := NewSeries(10)
	s.Apply(candleAt(0, 100, true))

	// A duplicate of an already-closed bucket must not mutate history.
	s.Apply(candleAt(0, 999, true))
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	last, _ := s.Last()
	if last.Close != 100 {
		t.Errorf("close = %v, want 100", last.Close)
	}
}

func TestSeries_EvictsOldestAtCapacity(t *testing.T) {
	s := NewSeries(3)
	for i := 0; i < 5; i++ {
		s.Apply(candleAt(i, float64(100+i), true))
	}

	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	closes := s.Closes()
	want := []float64{102, 103, 104}
	for i := range want {
		if closes[i] != want[i] {
			t.Errorf("closes[%d] = %v, want %v", i, closes[i], want[i])
		}
	}
}

func TestSeries_LastOnEmpty(t *testing.T) {
	s := NewSeries(10)
	if _, ok := s.Last(); ok {
		t.Error("empty series reported a last candle")
	}
}

func TestAlertEvent_Time(t *testing.T) {
	ev := NewAlertEvent(EventAlertTriggered, "BTCUSDT", 50100, t0, "hit")
	if !ev.Time().Equal(t0) {
		t.Errorf("Time() = %v, want %v", ev.Time(), t0)
	}
	if ev.Type != EventAlertTriggered || ev.Symbol != "BTCUSDT" || ev.Value != 50100 {
		t.Errorf("event = %+v", ev)
	}
}
