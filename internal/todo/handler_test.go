package todo

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func parseVia(t *testing.T, rawQuery string) Query {
	t.Helper()
	app := fiber.New()
	var got Query
	app.Get("/q", func(c *fiber.Ctx) error {
		got = parseQuery(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/q?"+rawQuery, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return got
}

func TestParseQueryDefaults(t *testing.T) {
	q := parseVia(t, "")
	if q.Page != 1 || q.Limit != defaultPageSize {
		t.Fatalf("unexpected paging %d/%d", q.Page, q.Limit)
	}
	if q.Sort != "created_at" || q.Order != "desc" {
		t.Fatalf("unexpected ordering %s %s", q.Sort, q.Order)
	}
}

func TestParseQueryClamps(t *testing.T) {
	q := parseVia(t, "page=-3&limit=9999")
	if q.Page != 1 {
		t.Fatalf("expected page clamped to 1, got %d", q.Page)
	}
	if q.Limit != maxPageSize {
		t.Fatalf("expected limit clamped to %d, got %d", maxPageSize, q.Limit)
	}

	q = parseVia(t, "limit=0")
	if q.Limit != defaultPageSize {
		t.Fatalf("expected default limit, got %d", q.Limit)
	}
}

func TestParseQueryWhitelistsSort(t *testing.T) {
	q := parseVia(t, "sort=password_hash&order=sideways")
	if q.Sort != "created_at" {
		t.Fatalf("expected unknown sort rejected, got %q", q.Sort)
	}
	if q.Order != "desc" {
		t.Fatalf("expected unknown order rejected, got %q", q.Order)
	}

	q = parseVia(t, "sort=due_date&order=asc&status=pending&priority=high&tag=work&search=report")
	if q.Sort != "due_date" || q.Order != "asc" {
		t.Fatalf("unexpected ordering %s %s", q.Sort, q.Order)
	}
	if q.Status != "pending" || q.Priority != "high" || q.Tag != "work" || q.Search != "report" {
		t.Fatalf("unexpected filters %+v", q)
	}
}

func TestTodoRequestParsesDueDate(t *testing.T) {
	req := todoRequest{Title: "write report", DueDate: "2026-09-01T12:00:00Z"}
	in, err := req.input()
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if in.DueDate.IsZero() {
		t.Fatal("expected parsed due date")
	}

	req.DueDate = "next tuesday"
	if _, err := req.input(); err == nil {
		t.Fatal("expected parse error")
	}
}
