package dish

import (
	"context"
	"errors"
	"testing"

	"myflex/internal/docstore"

	"github.com/google/go-cmp/cmp"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	repo := NewRepository(store)

	for _, d := range []Dish{
		{Name: "Shakshuka", IsVerified: true, Recipe: "eggs"},
		{Name: "Bolognese", IsVerified: true},
		{Name: "Unreviewed Curry"},
		{Name: "Avocado Toast", IsVerified: true},
	} {
		if _, err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	t.Run("VerifiedOrderedByName", func(t *testing.T) {
		dishes, err := repo.Verified(ctx)
		if err != nil {
			t.Fatalf("Verified failed: %v", err)
		}
		var names []string
		for _, d := range dishes {
			names = append(names, d.Name)
		}
		if diff := cmp.Diff([]string{"Avocado Toast", "Bolognese", "Shakshuka"}, names); diff != "" {
			t.Errorf("Verified mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("PendingThenVerify", func(t *testing.T) {
		pending, err := repo.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending failed: %v", err)
		}
		if len(pending) != 1 || pending[0].Name != "Unreviewed Curry" {
			t.Fatalf("Unexpected pending dishes %+v", pending)
		}

		if err := repo.Verify(ctx, pending[0].ID); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		got, err := repo.Get(ctx, pending[0].ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.IsVerified {
			t.Error("Expected dish to be verified")
		}
		verified, _ := repo.Verified(ctx)
		if len(verified) != 4 {
			t.Errorf("Expected 4 verified dishes, got %d", len(verified))
		}
	})

	t.Run("VerifyMissing", func(t *testing.T) {
		if err := repo.Verify(ctx, "missing"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateRequiresName", func(t *testing.T) {
		if _, err := repo.Create(ctx, Dish{Name: "  "}); !errors.Is(err, ErrInvalidDish) {
			t.Errorf("Expected ErrInvalidDish, got %v", err)
		}
	})
}

func TestLookupRecipe(t *testing.T) {
	catalog := []Dish{
		{Name: "pancakes", Recipe: "lowercase recipe"},
		{Name: "Pancakes", Recipe: "exact recipe"},
		{Name: "Soup", Recipe: "soup recipe"},
	}

	tests := []struct {
		name string
		want string
	}{
		{"Pancakes", "exact recipe"},
		{"SOUP", "soup recipe"},
		{"Lasagna", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LookupRecipe(catalog, tt.name); got != tt.want {
				t.Errorf("LookupRecipe(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
