package repositories

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/devank/tmplhub/pkg/models"
)

func TestRenderLogListByTemplate(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)
	logs := NewRenderLogRepository(db)
	ctx := context.Background()

	tmpl := seedTemplate(t, repo, "welcome", "Hi {{user_name}}")

	for i := 0; i < 3; i++ {
		id := tmpl.ID
		err := logs.Create(ctx, &models.RenderLog{
			TemplateID:   &id,
			ContextUsed:  datatypes.JSONMap{"user_name": "alice"},
			RenderedBody: "Hi alice",
			Success:      true,
			RequestedBy:  "test",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := logs.ListByTemplate(ctx, tmpl.ID, 2)
	if err != nil {
		t.Fatalf("ListByTemplate: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected limit to apply, got %d rows", len(got))
	}

	count, err := logs.CountSince(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 logs in window, got %d", count)
	}
}

func TestRenderLogWithoutTemplate(t *testing.T) {
	db := openTestDB(t)
	logs := NewRenderLogRepository(db)
	ctx := context.Background()

	err := logs.Create(ctx, &models.RenderLog{
		ContextUsed:  datatypes.JSONMap{},
		Success:      false,
		ErrorMessage: "template not found: missing (en, email)",
	})
	if err != nil {
		t.Fatalf("expected failed lookups to be loggable without a template id, got %v", err)
	}
}

func TestDeleteOlderThanBatches(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)
	logs := NewRenderLogRepository(db)
	ctx := context.Background()

	tmpl := seedTemplate(t, repo, "welcome", "body")
	id := tmpl.ID

	old := time.Now().AddDate(0, 0, -40)
	for i := 0; i < 5; i++ {
		entry := &models.RenderLog{TemplateID: &id, RenderedBody: "old", Success: true}
		if err := logs.Create(ctx, entry); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := db.Model(entry).UpdateColumn("created_at", old).Error; err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := logs.Create(ctx, &models.RenderLog{TemplateID: &id, RenderedBody: "fresh", Success: true}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	deleted, err := logs.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -30), 2)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 5 {
		t.Errorf("expected 5 deleted, got %d", deleted)
	}

	remaining, err := logs.ListByTemplate(ctx, tmpl.ID, 0)
	if err != nil {
		t.Fatalf("ListByTemplate: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("expected 2 fresh rows to survive, got %d", len(remaining))
	}
}
