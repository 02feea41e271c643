package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/imagestore"
)

type grievanceFixture struct {
	svc    *GrievanceService
	store  *memStore
	images *fakeImages
	clock  *stubClock
	alice  *domain.User
	bob    *domain.User
}

func newGrievanceFixture(t *testing.T) *grievanceFixture {
	t.Helper()
	f := &grievanceFixture{store: newMemStore(), images: &fakeImages{}, clock: newStubClock()}
	f.svc = NewGrievanceService(f.store, f.images, nil, nil, f.clock, 3, nil)

	ctx := context.Background()
	f.alice = &domain.User{Username: "alice", Email: "alice@example.com"}
	f.bob = &domain.User{Username: "bob", Email: "bob@example.com"}
	for _, u := range []*domain.User{f.alice, f.bob} {
		if err := f.store.Users().Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return f
}

func (f *grievanceFixture) post(t *testing.T, author *domain.User, title string) *domain.Grievance {
	t.Helper()
	f.clock.Advance(time.Minute)
	g, err := f.svc.Create(context.Background(), author, GrievanceInput{Category: "Other", Title: title, Content: "body"})
	if err != nil {
		t.Fatalf("create %s: %v", title, err)
	}
	return g
}

func titles(items []*domain.Grievance) string {
	out := make([]string, len(items))
	for i, g := range items {
		out[i] = g.Title
	}
	return strings.Join(out, ",")
}

func TestFeedNewestFirst(t *testing.T) {
	f := newGrievanceFixture(t)
	for _, title := range []string{"T1", "T2", "T3"} {
		f.post(t, f.alice, title)
	}

	page, err := f.svc.Feed(context.Background(), 1)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if got := titles(page.Items); got != "T3,T2,T1" {
		t.Fatalf("expected T3,T2,T1, got %s", got)
	}
	if page.Items[0].Author == nil || page.Items[0].Author.Username != "alice" {
		t.Fatalf("expected author to be attached")
	}
}

func TestFeedPagination(t *testing.T) {
	f := newGrievanceFixture(t)
	for i := 1; i <= 7; i++ {
		f.post(t, f.alice, fmt.Sprintf("T%d", i))
	}
	ctx := context.Background()

	tests := []struct {
		page int
		want string
	}{
		{1, "T7,T6,T5"},
		{2, "T4,T3,T2"},
		{3, "T1"},
		{4, ""},
		{0, "T7,T6,T5"},
	}
	for _, tt := range tests {
		p, err := f.svc.Feed(ctx, tt.page)
		if err != nil {
			t.Fatalf("page %d: %v", tt.page, err)
		}
		if got := titles(p.Items); got != tt.want {
			t.Fatalf("page %d: expected %q, got %q", tt.page, tt.want, got)
		}
		if p.Pages() != 3 || p.Total != 7 {
			t.Fatalf("page %d: expected 3 pages of 7, got %d of %d", tt.page, p.Pages(), p.Total)
		}
	}
}

func TestByAuthor(t *testing.T) {
	f := newGrievanceFixture(t)
	f.post(t, f.alice, "A1")
	f.post(t, f.bob, "B1")
	f.post(t, f.alice, "A2")
	ctx := context.Background()

	author, page, err := f.svc.ByAuthor(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("by author: %v", err)
	}
	if author.ID != f.alice.ID || titles(page.Items) != "A2,A1" {
		t.Fatalf("unexpected author page %s", titles(page.Items))
	}

	if _, _, err := f.svc.ByAuthor(ctx, "nobody", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNonAuthorIsForbidden(t *testing.T) {
	f := newGrievanceFixture(t)
	g := f.post(t, f.alice, "mine")
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.bob, g.ID, GrievanceInput{Category: "Other", Title: "hijacked", Content: "x"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden update, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.bob, g.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if _, err := f.svc.Editable(ctx, nil, g.ID, "update"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected anonymous to be forbidden, got %v", err)
	}

	stored, _ := f.svc.Get(ctx, g.ID)
	if stored.Title != "mine" {
		t.Fatalf("grievance must be unchanged, got %q", stored.Title)
	}
	if len(f.images.stored) != 0 {
		t.Fatalf("no picture may be stored for a forbidden request")
	}
}

func TestMissingGrievanceIsNotFound(t *testing.T) {
	f := newGrievanceFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Get(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.alice, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestUpdateReplacesPicture(t *testing.T) {
	f := newGrievanceFixture(t)
	ctx := context.Background()

	g, err := f.svc.Create(ctx, f.alice, GrievanceInput{
		Category: "Water Supply", Title: "Leak", Content: "Pipe burst",
		Picture: &Upload{Filename: "leak.gif", Body: strings.NewReader("gif")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.ImageFile != "img1.gif" || f.images.transformed != 0 {
		t.Fatalf("grievance pictures are stored as-is, got %q", g.ImageFile)
	}

	updated, err := f.svc.Update(ctx, f.alice, g.ID, GrievanceInput{
		Category: "Water Supply", Title: "Leak fixed?", Content: "Still leaking",
		Picture: &Upload{Filename: "leak2.jpg", Body: strings.NewReader("jpg")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageFile != "img2.jpg" || !updated.DatePosted.Equal(g.DatePosted) {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if len(f.images.deleted) != 1 || f.images.deleted[0] != "img1.gif" {
		t.Fatalf("expected old picture removed, deleted=%v", f.images.deleted)
	}

	kept, err := f.svc.Update(ctx, f.alice, g.ID, GrievanceInput{Category: "Other", Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("update without picture: %v", err)
	}
	if kept.ImageFile != "img2.jpg" {
		t.Fatalf("picture must be kept when none is uploaded, got %q", kept.ImageFile)
	}
}

func TestCreate_StorageErrorWritesNothing(t *testing.T) {
	f := newGrievanceFixture(t)
	f.images.err = errDiskFull

	_, err := f.svc.Create(context.Background(), f.alice, GrievanceInput{
		Category: "Other", Title: "t", Content: "c",
		Picture: &Upload{Filename: "x.png", Body: strings.NewReader("png")},
	})
	var storageErr *imagestore.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(f.store.grievances) != 0 {
		t.Fatalf("no grievance may be written")
	}
}

func TestCreate_WriteFailureRemovesPicture(t *testing.T) {
	f := newGrievanceFixture(t)
	f.store.failWrites = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), f.alice, GrievanceInput{
		Category: "Other", Title: "t", Content: "c",
		Picture: &Upload{Filename: "x.png", Body: strings.NewReader("png")},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(f.images.deleted) != 1 || f.images.deleted[0] != "img1.png" {
		t.Fatalf("expected orphaned picture to be removed, deleted=%v", f.images.deleted)
	}
}

func TestDeleteRemovesPicture(t *testing.T) {
	f := newGrievanceFixture(t)
	ctx := context.Background()

	g, _ := f.svc.Create(ctx, f.alice, GrievanceInput{
		Category: "Other", Title: "t", Content: "c",
		Picture: &Upload{Filename: "x.png", Body: strings.NewReader("png")},
	})
	if err := f.svc.Delete(ctx, f.alice, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, g.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected grievance gone, got %v", err)
	}
	if len(f.images.deleted) != 1 || f.images.deleted[0] != g.ImageFile {
		t.Fatalf("expected picture removed, deleted=%v", f.images.deleted)
	}
}
