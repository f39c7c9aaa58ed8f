package kernel

import "testing"

func TestUniverseBotTop(t *testing.T) {
	if !Bot().IsBot() {
		t.Error("Bot() should report IsBot")
	}
	if Bot().IsTop() {
		t.Error("Bot() should not report IsTop")
	}
	if !Top().IsTop() {
		t.Error("Top() should report IsTop")
	}
	if Top().IsBot() {
		t.Error("Top() should not report IsBot")
	}
}

func TestNewUniverseCollapsesToTop(t *testing.T) {
	u := NewUniverse(5, 3)
	if !u.IsTop() {
		t.Error("lb > ub should collapse to Top")
	}
}

func TestSingleton(t *testing.T) {
	u := Singleton(4)
	if !u.IsSingleton() {
		t.Fatal("Singleton(4) should be a singleton")
	}
	if u.SingletonValue() != 4 {
		t.Errorf("SingletonValue() = %d, want 4", u.SingletonValue())
	}
}

func TestSingletonValuePanicsOnNonSingleton(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SingletonValue on a non-singleton should panic")
		}
	}()
	NewUniverse(1, 2).SingletonValue()
}

func TestMeet(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Universe
		wantLB int
		wantUB int
		top    bool
	}{
		{"overlapping", NewUniverse(0, 5), NewUniverse(3, 8), 3, 5, false},
		{"disjoint", NewUniverse(0, 2), NewUniverse(4, 6), 0, 0, true},
		{"meet with bot is identity", Bot(), NewUniverse(2, 4), 2, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Meet(tt.b)
			if got.IsTop() != tt.top {
				t.Fatalf("IsTop() = %v, want %v", got.IsTop(), tt.top)
			}
			if !tt.top {
				if got.LB() != tt.wantLB || got.UB() != tt.wantUB {
					t.Errorf("Meet() = [%d,%d], want [%d,%d]", got.LB(), got.UB(), tt.wantLB, tt.wantUB)
				}
			}
		})
	}
}

func TestJoin(t *testing.T) {
	got := NewUniverse(0, 2).Join(NewUniverse(5, 7))
	if got.LB() != 0 || got.UB() != 7 {
		t.Errorf("Join() = [%d,%d], want [0,7]", got.LB(), got.UB())
	}
	if got := Top().Join(NewUniverse(1, 2)); got.LB() != 1 || got.UB() != 2 {
		t.Errorf("Join with Top should be identity on the other operand, got [%d,%d]", got.LB(), got.UB())
	}
}

func TestEntails(t *testing.T) {
	if !Singleton(2).Entails(NewUniverse(1, 3)) {
		t.Error("a singleton inside a range should entail it")
	}
	if Singleton(5).Entails(NewUniverse(1, 3)) {
		t.Error("a singleton outside a range should not entail it")
	}
	if !NewUniverse(1, 3).Entails(NewUniverse(1, 3)) {
		t.Error("a universe should entail itself")
	}
}

func TestWidthAndMedian(t *testing.T) {
	u := NewUniverse(1, 4)
	if u.Width() != 4 {
		t.Errorf("Width() = %d, want 4", u.Width())
	}
	if u.Median() != 2 {
		t.Errorf("Median() = %d, want 2", u.Median())
	}
	if Top().Width() != 0 {
		t.Errorf("Top().Width() = %d, want 0", Top().Width())
	}
}

func TestPreserveBotTop(t *testing.T) {
	if !Bot().PreserveBot() || !Bot().PreserveTop() {
		t.Error("Interval universes always preserve bot/top")
	}
	if !Top().PreserveBot() || !Top().PreserveTop() {
		t.Error("Interval universes always preserve bot/top")
	}
}

func TestDeinterpret(t *testing.T) {
	f := Singleton(7).Deinterpret()
	if !f.IsZ() || f.ZValue() != 7 {
		t.Errorf("Deinterpret() of a singleton should be Z(7), got %s", f)
	}
	f2 := NewUniverse(2, 6).Deinterpret()
	if !f2.IsZ() || f2.ZValue() != 4 {
		t.Errorf("Deinterpret() of a range should be its median, got %s", f2)
	}
}
