package main

import (
	"context"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderalign/collections"
	"tenderalign/config"
	"tenderalign/handlers"
	"tenderalign/services"
)

func main() {
	app := pocketbase.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var embedder services.EmbeddingLookup
	if cfg.Embedding.Enabled {
		embedder, err = services.NewGeminiEmbedder(context.Background(), cfg.Embedding)
		if err != nil {
			log.Fatalf("embedding: %v", err)
		}
	}

	// Create collections and run startup migrations
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.MigrateDuplicateCompanies(app, services.NormalizeCompany); err != nil {
			log.Printf("Warning: company migration failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// ── WBS hierarchy ────────────────────────────────────────
		se.Router.POST("/projects/{projectId}/wbs/import",
			handlers.HandleWbsImport(app))
		se.Router.POST("/projects/{projectId}/wbs/plan",
			handlers.HandleWbsPlan(app, cfg))
		se.Router.GET("/projects/{projectId}/wbs/template",
			handlers.HandleWbsTemplateDownload(app))

		// ── Baseline import ──────────────────────────────────────
		se.Router.POST("/projects/{projectId}/baseline/import",
			handlers.HandleBaselineImport(app, cfg))

		// ── Bid returns and matching reports ─────────────────────
		se.Router.POST("/projects/{projectId}/returns/import",
			handlers.HandleReturnsImport(app, cfg, embedder))
		se.Router.GET("/projects/{projectId}/returns/{docId}/report",
			handlers.HandleReportView(app))
		se.Router.GET("/projects/{projectId}/returns/{docId}/report/pdf",
			handlers.HandleReportExportPDF(app))

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
