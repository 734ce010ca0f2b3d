package model

import "testing"

func TestStatusRankOrder(t *testing.T) {
	order := []Status{StatusSending, StatusSent, StatusDelivered, StatusRead}
	for i := 1; i < len(order); i++ {
		if !order[i].After(order[i-1]) {
			t.Fatalf("%s should rank after %s", order[i], order[i-1])
		}
	}
	if Status("bogus").Rank() != -1 {
		t.Fatal("unknown status must rank -1")
	}
}

func TestStatusAfterIgnoresStaleAndEqual(t *testing.T) {
	// 同级和倒退都不算前进——乱序/重放事件靠这条丢弃
	if StatusRead.After(StatusRead) {
		t.Fatal("equal status is not a progression")
	}
	if StatusDelivered.After(StatusRead) {
		t.Fatal("delivered must not supersede read")
	}
	if Status("bogus").After(StatusSending) {
		t.Fatal("unknown status must never supersede a known one")
	}
	if !StatusSent.After(Status("bogus")) {
		t.Fatal("known status supersedes unknown")
	}
}
