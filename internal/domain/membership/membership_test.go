package membership

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestServiceStaticAndDynamic(t *testing.T) {
	ctx := context.Background()
	svc := NewService([]string{" Skool@X.com "}, NewMemorySet())

	if ok, _ := svc.IsMember(ctx, "skool@x.com"); !ok {
		t.Fatal("static member should match after normalization")
	}
	if ok, _ := svc.IsMember(ctx, "new@x.com"); ok {
		t.Fatal("unknown email should not be a member")
	}

	if err := svc.Add(ctx, "NEW@x.com"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ok, _ := svc.IsMember(ctx, "new@x.com"); !ok {
		t.Fatal("added email should be a member")
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := []string{"new@x.com", "skool@x.com"}; !reflect.DeepEqual(list, want) {
		t.Fatalf("list = %v, want %v", list, want)
	}

	if err := svc.Remove(ctx, "new@x.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := svc.IsMember(ctx, "new@x.com"); ok {
		t.Fatal("removed email should not be a member")
	}
}

func TestRemoveStaticMemberFails(t *testing.T) {
	svc := NewService([]string{"a@x.com"}, nil)
	if err := svc.Remove(context.Background(), "a@x.com"); !errors.Is(err, ErrStaticMember) {
		t.Fatalf("expected ErrStaticMember, got %v", err)
	}
}
