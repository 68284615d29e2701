package handler

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	v1 "github.com/quillmind-ai/quillmind/app/logic/v1"
	"github.com/quillmind-ai/quillmind/app/response"
	"github.com/quillmind-ai/quillmind/pkg/types"
	"github.com/quillmind-ai/quillmind/pkg/utils"
)

func (s *HttpSrv) CreateSnapshots(c *gin.Context) {
	outcomes := v1.NewBackupLogic(c, s.Core).SnapshotNow()
	response.APISuccess(c, outcomes)
}

func (s *HttpSrv) ListSnapshots(c *gin.Context) {
	response.APISuccess(c, v1.NewBackupLogic(c, s.Core).ListSnapshots())
}

// CreateArchive builds a full export. With download=true the zip is
// written to a transient location, streamed out and removed; otherwise
// it is stored under the backup root and rotated.
func (s *HttpSrv) CreateArchive(c *gin.Context) {
	download := c.Query("download") == "true"

	result, err := v1.NewBackupLogic(c, s.Core).CreateArchive(download)
	if err != nil {
		response.APIError(c, err)
		return
	}

	if !download {
		response.APISuccess(c, result)
		return
	}

	defer os.Remove(result.Path)
	c.FileAttachment(result.Path, filepath.Base(result.Path))
}

func (s *HttpSrv) ArchiveGuide(c *gin.Context) {
	response.APISuccess(c, gin.H{
		"guide": v1.NewBackupLogic(c, s.Core).RestoreGuide(),
	})
}

func (s *HttpSrv) GetBackupSettings(c *gin.Context) {
	settings, err := v1.NewBackupLogic(c, s.Core).GetSettings()
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, settings)
}

type UpdateBackupSettingsRequest struct {
	Enabled       bool   `json:"enabled"`
	Schedule      string `json:"schedule"`
	CloudProvider string `json:"cloud_provider"`
	NotifyEnabled bool   `json:"notify_enabled"`
	NotifyURL     string `json:"notify_url"`
}

func (s *HttpSrv) UpdateBackupSettings(c *gin.Context) {
	var req UpdateBackupSettingsRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	settings, err := v1.NewBackupLogic(c, s.Core).UpdateSettings(types.BackupSettings{
		Enabled:       req.Enabled,
		Schedule:      req.Schedule,
		CloudProvider: req.CloudProvider,
		NotifyEnabled: req.NotifyEnabled,
		NotifyURL:     req.NotifyURL,
	})
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, settings)
}
