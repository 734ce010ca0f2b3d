package model

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanonicalPairOrderIndependent(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	p1 := CanonicalPair(a, b)
	p2 := CanonicalPair(b, a)
	if p1[0] != p2[0] || p1[1] != p2[1] {
		t.Fatalf("pair must be order independent: %v vs %v", p1, p2)
	}
	if p1[0].Hex() > p1[1].Hex() {
		t.Fatalf("pair must be sorted: %v", p1)
	}
}

func TestUnreadForAndPeer(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := Conversation{
		Participants: CanonicalPair(a, b),
		UnreadCounts: []UnreadCount{{User: a, Count: 3}, {User: b, Count: 0}},
	}

	if got := c.UnreadFor(a); got != 3 {
		t.Fatalf("want 3 unread for a, got %d", got)
	}
	if got := c.UnreadFor(primitive.NewObjectID()); got != 0 {
		t.Fatalf("stranger defaults to 0 unread, got %d", got)
	}

	if got := c.Peer(a); got != b {
		t.Fatalf("peer of a must be b, got %s", got.Hex())
	}
	if got := c.Peer(b); got != a {
		t.Fatalf("peer of b must be a, got %s", got.Hex())
	}
}
