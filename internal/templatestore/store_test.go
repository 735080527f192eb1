package templatestore_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/mind-engage/mindengage-omr/internal/db"
	"github.com/mind-engage/mindengage-omr/internal/omrtest"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
	"github.com/mind-engage/mindengage-omr/internal/templatestore"
)

func stores(t *testing.T) map[string]templatestore.Store {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return map[string]templatestore.Store{
		"mem": templatestore.NewMemStore(),
		"sql": templatestore.NewSQLStore(conn),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tpl := omrtest.Template("quiz-1", 6)
			tpl.Version = 3
			if err := s.Put(ctx, tpl); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get(ctx, "quiz-1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Version != 3 || got.PageCount != 1 || got.Questions() != 6 {
				t.Fatalf("got %+v", got)
			}
			if got.Pages[0].Grid != tpl.Pages[0].Grid {
				t.Fatalf("grid changed: %+v", got.Pages[0].Grid)
			}

			// Upsert replaces.
			tpl.Version = 4
			if err := s.Put(ctx, tpl); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.Get(ctx, "quiz-1"); got.Version != 4 {
				t.Fatalf("version = %d after upsert", got.Version)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, templatestore.ErrNotFound) {
				t.Fatalf("want ErrNotFound, got %v", err)
			}
		})
	}
}

func TestPutRejectsInvalid(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			tpl := omrtest.Template("bad", 2)
			tpl.BubbleDiameter = 0
			var ve *sheet.ValidationError
			if err := s.Put(context.Background(), tpl); !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"final-b", "quiz-2", "final-a", "quiz-1"} {
				if err := s.Put(ctx, omrtest.Template(id, 4)); err != nil {
					t.Fatal(err)
				}
			}
			all, err := s.List(ctx, templatestore.ListOpts{})
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 4 || all[0].ID != "final-a" || all[3].ID != "quiz-2" {
				t.Fatalf("list = %+v", all)
			}
			if all[0].Questions != 4 || all[0].PageCount != 1 {
				t.Fatalf("summary = %+v", all[0])
			}

			finals, _ := s.List(ctx, templatestore.ListOpts{Q: "final"})
			if len(finals) != 2 {
				t.Fatalf("prefix filter = %+v", finals)
			}
			pg, _ := s.List(ctx, templatestore.ListOpts{Limit: 2, Offset: 1})
			if len(pg) != 2 || pg[0].ID != "final-b" || pg[1].ID != "quiz-1" {
				t.Fatalf("page = %+v", pg)
			}
			tail, _ := s.List(ctx, templatestore.ListOpts{Offset: 3})
			if len(tail) != 1 || tail[0].ID != "quiz-2" {
				t.Fatalf("offset only = %+v", tail)
			}
		})
	}
}

func TestListPrefixIsLiteral(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"a_b", "axb", "a%c", "abc", "A_b"} {
				if err := s.Put(ctx, omrtest.Template(id, 2)); err != nil {
					t.Fatal(err)
				}
			}
			cases := map[string][]string{
				"a_": {"a_b"},
				"a%": {"a%c"},
				"A":  {"A_b"},
				"a":  {"a%c", "a_b", "abc", "axb"},
			}
			for q, want := range cases {
				got, err := s.List(ctx, templatestore.ListOpts{Q: q})
				if err != nil {
					t.Fatal(err)
				}
				ids := make([]string, len(got))
				for i, sm := range got {
					ids[i] = sm.ID
				}
				if !slices.Equal(ids, want) {
					t.Errorf("List(q=%q) = %v, want %v", q, ids, want)
				}
			}
		})
	}
}
