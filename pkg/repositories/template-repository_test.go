package repositories

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devank/tmplhub/pkg/models"
	"github.com/devank/tmplhub/pkg/templates"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Template{}, &models.TemplateContent{}, &models.RenderLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTemplate(t *testing.T, repo *TemplateRepository, name, body string) *models.Template {
	t.Helper()

	tmpl := &models.Template{
		Name:         name,
		Language:     "en",
		TemplateType: models.TemplateTypeEmail,
		Content: &models.TemplateContent{
			Subject: "Hello {{user_name}}",
			Body:    body,
			IsHTML:  true,
		},
	}
	if err := repo.CreateInitial(context.Background(), tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tmpl
}

func TestCreateInitial(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	tmpl := seedTemplate(t, repo, "welcome", "Welcome, {{user_name}}!")
	if tmpl.Version != 1 {
		t.Errorf("expected version 1, got %d", tmpl.Version)
	}
	if !tmpl.IsActive {
		t.Error("expected initial version to be active")
	}

	got, err := repo.GetActive(ctx, "welcome", "en", models.TemplateTypeEmail)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if got == nil {
		t.Fatal("expected active template")
	}
	if got.Content == nil {
		t.Fatal("expected content to be preloaded")
	}
	vars := []string(got.Content.ExtractedVariables)
	if len(vars) != 1 || vars[0] != "user_name" {
		t.Errorf("expected extracted variables [user_name], got %v", vars)
	}
}

func TestCreateInitialConflictsWithActive(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))

	seedTemplate(t, repo, "welcome", "body")

	dup := &models.Template{
		Name:         "welcome",
		Language:     "en",
		TemplateType: models.TemplateTypeEmail,
		Content:      &models.TemplateContent{Body: "other"},
	}
	err := repo.CreateInitial(context.Background(), dup)
	if !templates.IsKind(err, templates.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateVersionSupersedes(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	v1 := seedTemplate(t, repo, "welcome", "old body {{user_name}}")

	v2, err := repo.CreateVersion(ctx, v1, &models.TemplateContent{Body: "new body {{order_id}}", IsHTML: true}, "rewrite")
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v2.Version != 2 {
		t.Errorf("expected version 2, got %d", v2.Version)
	}

	active, err := repo.GetActive(ctx, "welcome", "en", models.TemplateTypeEmail)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.Version != 2 {
		t.Errorf("expected active version 2, got %d", active.Version)
	}

	old, err := repo.GetVersion(ctx, "welcome", "en", models.TemplateTypeEmail, 1)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if old.IsActive {
		t.Error("expected version 1 to be deactivated")
	}

	versions, err := repo.ListVersions(ctx, "welcome", "en")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].Version != 2 {
		t.Errorf("expected newest first, got version %d first", versions[0].Version)
	}
}

func TestCreateVersionKeepsDescriptionWhenEmpty(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	v1 := &models.Template{
		Name:         "welcome",
		Language:     "en",
		TemplateType: models.TemplateTypeEmail,
		Description:  "greets new users",
		Content:      &models.TemplateContent{Body: "hi"},
	}
	if err := repo.CreateInitial(ctx, v1); err != nil {
		t.Fatalf("CreateInitial: %v", err)
	}

	v2, err := repo.CreateVersion(ctx, v1, &models.TemplateContent{Body: "hello"}, "")
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v2.Description != "greets new users" {
		t.Errorf("expected inherited description, got %q", v2.Description)
	}
}

func TestActivateVersionRollsBack(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	v1 := seedTemplate(t, repo, "welcome", "v1 body {{user_name}}")
	if _, err := repo.CreateVersion(ctx, v1, &models.TemplateContent{Body: "v2 body"}, ""); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	restored, err := repo.ActivateVersion(ctx, "welcome", "en", models.TemplateTypeEmail, 1)
	if err != nil {
		t.Fatalf("ActivateVersion: %v", err)
	}
	if restored.Version != 1 {
		t.Errorf("expected version 1, got %d", restored.Version)
	}
	if restored.Content == nil || restored.Content.Body != "v1 body {{user_name}}" {
		t.Error("expected version 1 content to be untouched by rollback")
	}

	v2, err := repo.GetVersion(ctx, "welcome", "en", models.TemplateTypeEmail, 2)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v2.IsActive {
		t.Error("expected version 2 to be inactive after rollback")
	}

	var activeCount int64
	repo.db.Model(&models.Template{}).
		Where("name = ? AND language = ? AND template_type = ? AND is_active = ?", "welcome", "en", models.TemplateTypeEmail, true).
		Count(&activeCount)
	if activeCount != 1 {
		t.Errorf("expected exactly one active row, got %d", activeCount)
	}
}

func TestActivateVersionMissingTarget(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))

	seedTemplate(t, repo, "welcome", "body")

	_, err := repo.ActivateVersion(context.Background(), "welcome", "en", models.TemplateTypeEmail, 9)
	if !templates.IsKind(err, templates.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateActiveContentReextractsVariables(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	seedTemplate(t, repo, "welcome", "Hi {{user_name}}")

	updated, err := repo.UpdateActiveContent(ctx, "welcome", "en", models.TemplateTypeEmail, "Order {{order_id}}", "Total {{total}}", false)
	if err != nil {
		t.Fatalf("UpdateActiveContent: %v", err)
	}
	if updated.Version != 1 {
		t.Errorf("expected in-place edit to keep version 1, got %d", updated.Version)
	}

	got, err := repo.GetActive(ctx, "welcome", "en", models.TemplateTypeEmail)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	vars := []string(got.Content.ExtractedVariables)
	if len(vars) != 2 || vars[0] != "order_id" || vars[1] != "total" {
		t.Errorf("expected re-extracted variables [order_id total], got %v", vars)
	}
	if got.Content.IsHTML {
		t.Error("expected is_html to be updated")
	}
}

func TestDeleteRejectsActiveVersion(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	v1 := seedTemplate(t, repo, "welcome", "body")

	err := repo.Delete(ctx, v1.ID)
	if !templates.IsKind(err, templates.KindConflict) {
		t.Fatalf("expected conflict deleting active version, got %v", err)
	}

	if _, err := repo.CreateVersion(ctx, v1, &models.TemplateContent{Body: "v2"}, ""); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if err := repo.Delete(ctx, v1.ID); err != nil {
		t.Fatalf("Delete inactive: %v", err)
	}

	if _, err := repo.GetVersion(ctx, "welcome", "en", models.TemplateTypeEmail, 1); !templates.IsKind(err, templates.KindNotFound) {
		t.Fatalf("expected version 1 gone, got %v", err)
	}

	var contentCount int64
	repo.db.Model(&models.TemplateContent{}).Where("template_id = ?", v1.ID).Count(&contentCount)
	if contentCount != 0 {
		t.Errorf("expected content rows removed with the version, got %d", contentCount)
	}
}

func TestListActiveOrdersByUpdatedAt(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	seedTemplate(t, repo, "first", "a")
	seedTemplate(t, repo, "second", "b")
	seedTemplate(t, repo, "third", "c")

	active, err := repo.ListActive(ctx, 2)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected limit to apply, got %d rows", len(active))
	}

	count, err := repo.CountActive(ctx)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 active templates, got %d", count)
	}
}

func TestTuplesAreIndependent(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	ctx := context.Background()

	seedTemplate(t, repo, "welcome", "email body")

	frenchEmail := &models.Template{
		Name:         "welcome",
		Language:     "fr",
		TemplateType: models.TemplateTypeEmail,
		Content:      &models.TemplateContent{Body: "corps"},
	}
	if err := repo.CreateInitial(ctx, frenchEmail); err != nil {
		t.Fatalf("expected fr tuple to be independent, got %v", err)
	}

	versions, err := repo.ListVersions(ctx, "welcome", "en")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("expected fr version not to appear under en, got %d rows", len(versions))
	}
}
