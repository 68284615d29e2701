package service

import (
	"github.com/quillmind-ai/quillmind/app/core"
	"github.com/quillmind-ai/quillmind/app/logic/v1/process"
	"github.com/quillmind-ai/quillmind/app/response"
	"github.com/quillmind-ai/quillmind/cmd/service/handler"
	"github.com/quillmind-ai/quillmind/cmd/service/middleware"
	"github.com/quillmind-ai/quillmind/pkg/metrics"
)

func serve(core *core.Core, proc *process.IngestProcess) {
	httpSrv := &handler.HttpSrv{
		Core:    core,
		Engine:  core.HttpEngine(),
		Process: proc,
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func setupHttpRouter(s *handler.HttpSrv) {
	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)

	s.Engine.GET("/metrics", middleware.MetricsAuth(s.Core.Cfg().Security.MetricsPassword), metrics.DefaultExportHandler())

	apiV1 := s.Engine.Group("/api/v1")
	{
		apiV1.GET("/healthz", s.Healthz)

		knowledge := apiV1.Group("/knowledge")
		{
			knowledge.GET("", s.ListKnowledge)
			knowledge.GET("/categories", s.ListKnowledgeCategories)
			knowledge.GET("/files", s.ListKnowledgeFiles)
			knowledge.DELETE("/files/:fileid", s.DeleteKnowledgeFile)
			knowledge.GET("/:id", s.GetKnowledge)
		}

		ingest := apiV1.Group("/ingest")
		{
			ingest.GET("/status", s.IngestStatus)
		}

		backup := apiV1.Group("/backup")
		{
			backup.POST("/snapshots", s.CreateSnapshots)
			backup.GET("/snapshots", s.ListSnapshots)
			backup.POST("/archive", s.CreateArchive)
			backup.GET("/archive/guide", s.ArchiveGuide)
			backup.GET("/settings", s.GetBackupSettings)
			backup.PUT("/settings", s.UpdateBackupSettings)
		}
	}
}
