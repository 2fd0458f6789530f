package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/querybuilder"
	"github.com/snapq/snapq-go/internal/replay"
	"github.com/snapq/snapq-go/internal/snapshot"
)

func listReplaySnapshots(c *gin.Context, svc *snapshot.Service) {
	query, err := querybuilder.ParseFromRequest(c)
	if err != nil {
		apperror.Abort(c, apperror.Validation(err.Error()))
		return
	}

	result, err := svc.List(query)
	if err != nil {
		apperror.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, apperror.DataEnvelope(result.Rows, map[string]interface{}{
		"total":  result.Total,
		"limit":  query.Limit,
		"offset": query.Offset,
	}))
}

func getReplaySnapshot(c *gin.Context, svc *snapshot.Service) {
	row, err := svc.Get(c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(row, nil))
}

func executeReplay(c *gin.Context, engine *replay.Engine) {
	result, err := engine.Replay(c.Param("id"))
	if err != nil {
		apperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(result, nil))
}

func getWorkerStats(c *gin.Context, db *gorm.DB) {
	var row models.WorkerStatsRow
	err := db.Order("last_heartbeat_at DESC").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		apperror.Abort(c, apperror.Dependency("no worker heartbeat recorded", err))
		return
	}
	if err != nil {
		apperror.Abort(c, apperror.Internal("failed to load worker stats", err))
		return
	}
	c.JSON(http.StatusOK, apperror.DataEnvelope(row, nil))
}
