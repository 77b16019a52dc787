package market

import (
	"testing"
	"testing/quick"
)

func TestComputeOddsEmptyPool(t *testing.T) {
	odds := ComputeOdds(0, 0)
	if odds.Yes != 5000 || odds.No != 5000 {
		t.Fatalf("empty pool odds got=%+v want=5000/5000", odds)
	}
}

func TestComputeOddsScenario(t *testing.T) {
	// 100 units YES, 200 units NO.
	odds := ComputeOdds(100_000000, 200_000000)
	if odds.Yes+odds.No != OddsBasis {
		t.Fatalf("odds sum got=%d want=%d", odds.Yes+odds.No, OddsBasis)
	}
	if odds.Yes < 3333 || odds.Yes > 3334 {
		t.Fatalf("yes odds got=%d want ~3333", odds.Yes)
	}
	if odds.No < 6666 || odds.No > 6667 {
		t.Fatalf("no odds got=%d want ~6667", odds.No)
	}
}

func TestComputeOddsSingleSided(t *testing.T) {
	odds := ComputeOdds(500, 0)
	if odds.Yes != OddsBasis || odds.No != 0 {
		t.Fatalf("single-sided odds got=%+v want=10000/0", odds)
	}
}

func TestComputeOddsLargePools(t *testing.T) {
	// 2.5B tokens YES against 1 token NO: the dominant side must report
	// near-certain implied probability, not an intermediate-overflow artifact.
	odds := ComputeOdds(2_500_000_000_000_000, 1_000000)
	if odds.Yes != 9999 && odds.Yes != 10000 {
		t.Fatalf("dominant yes odds got=%d want ~10000", odds.Yes)
	}
	if odds.Yes+odds.No != OddsBasis {
		t.Fatalf("odds sum got=%d want=%d", odds.Yes+odds.No, OddsBasis)
	}

	// Pool sum past uint64.
	odds = ComputeOdds(1<<63, 1<<63)
	if odds.Yes != 5000 || odds.No != 5000 {
		t.Fatalf("balanced huge pools got=%+v want=5000/5000", odds)
	}
}

func TestComputeOddsSumProperty(t *testing.T) {
	property := func(yes, no uint64) bool {
		odds := ComputeOdds(yes, no)
		if odds.Yes > OddsBasis || odds.No > OddsBasis {
			return false
		}
		return odds.Yes+odds.No == OddsBasis
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 1000}); err != nil {
		t.Errorf("odds sum property failed: %v", err)
	}
}
