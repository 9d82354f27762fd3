package messages

import (
	"strings"
	"testing"
)

func TestSessionDeclension(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "сессия"},
		{2, "сессии"},
		{3, "сессии"},
		{4, "сессии"},
		{5, "сессий"},
		{11, "сессий"},
		{12, "сессий"},
		{21, "сессия"},
		{22, "сессии"},
		{100, "сессий"},
		{101, "сессия"},
		{111, "сессий"},
	}
	for _, tc := range tests {
		if got := SessionDeclension(tc.n); got != tc.want {
			t.Errorf("SessionDeclension(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestHourDeclension(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "час"},
		{2, "часа"},
		{5, "часов"},
		{11, "часов"},
		{21, "час"},
		{24, "часа"},
	}
	for _, tc := range tests {
		if got := HourDeclension(tc.n); got != tc.want {
			t.Errorf("HourDeclension(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestEscape(t *testing.T) {
	got := Escape("  <b>раз & 'два'</b> ")
	want := "&lt;b&gt;раз &amp; &#39;два&#39;&lt;/b&gt;"
	if got != want {
		t.Fatalf("Escape = %q, want %q", got, want)
	}
}

func TestQuotaMessagesDiffer(t *testing.T) {
	free := QuotaFreeExhausted(1)
	paid := QuotaPaidExhausted(3)

	if !strings.Contains(free, "/subscribe") {
		t.Error("free quota message must point at /subscribe")
	}
	if strings.Contains(paid, "/subscribe") {
		t.Error("paid quota message must not upsell")
	}
	if !strings.Contains(paid, "Возвращайтесь завтра") {
		t.Errorf("paid quota message: %q", paid)
	}
	if !strings.Contains(free, "1 сессия") {
		t.Errorf("free quota message must show the limit: %q", free)
	}
}

func TestCardsLimitText(t *testing.T) {
	if got := CardsLimitText(nil); got != "Все 81 карта" {
		t.Errorf("unlimited: %q", got)
	}
	ten := 10
	if got := CardsLimitText(&ten); got != "10 карт" {
		t.Errorf("limited: %q", got)
	}
}

func TestRandomEncouragementDrawsFromList(t *testing.T) {
	words := map[string]bool{}
	for _, w := range EncouragementWords() {
		words[w] = true
	}
	for i := 0; i < 20; i++ {
		if !words[RandomEncouragement()] {
			t.Fatal("encouragement outside the list")
		}
	}
}
