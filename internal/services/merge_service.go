package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sentinela-app/sentinela/internal/models"
	pgrepo "github.com/sentinela-app/sentinela/internal/repositories/postgres"
	"github.com/sentinela-app/sentinela/internal/storage"
	"github.com/sirupsen/logrus"
)

// Fallback duration for a segment uploaded without one. Not precision
// critical; only feeds the total on the recording row.
const defaultSegmentDuration = 30.0

const mergedContentType = "audio/mpeg"

// Error causes recorded in the details of session_concatenation_error
// events. Every one of them leaves the session awaiting finalization so the
// next sweep retries from the top.
const (
	causeSegmentDownloadFailed = "segment_download_failed"
	causeFinalUploadFailed     = "final_upload_failed"
	causeFinalFileNotFound     = "final_file_not_found_after_upload"
	causeRecordingInsertFailed = "gravacao_insert_failed"
)

// MergeService turns a sealed session with segments into exactly one
// recording, or deletes the session when it has none. All I/O failures are
// retryable: nothing is persisted and no cleanup runs until the merged
// object, the recording row and the status change are all in place.
type MergeService interface {
	Finalize(ctx context.Context, sess *models.MonitoringSession) SweepResult
}

type mergeService struct {
	sessions   pgrepo.SessionRepository
	recordings pgrepo.RecordingRepository
	store      storage.ObjectStore
	audit      AuditService
	pipeline   PipelineTrigger
	log        *logrus.Logger
}

func NewMergeService(
	sessions pgrepo.SessionRepository,
	recordings pgrepo.RecordingRepository,
	store storage.ObjectStore,
	audit AuditService,
	pipeline PipelineTrigger,
	log *logrus.Logger,
) MergeService {
	if log == nil {
		log = logrus.New()
	}
	return &mergeService{
		sessions:   sessions,
		recordings: recordings,
		store:      store,
		audit:      audit,
		pipeline:   pipeline,
		log:        log,
	}
}

func (s *mergeService) Finalize(ctx context.Context, sess *models.MonitoringSession) SweepResult {
	log := s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
	})

	segments, err := s.sessions.ListSegmentsOrdered(ctx, sess.ID)
	if err != nil {
		log.WithError(err).Error("failed to list segments")
		s.audit.Record(ctx, sess.UserID, models.AuditMaintenanceError, false, map[string]any{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return SweepResult{Action: ActionError, SessionID: sess.ID, Error: err.Error()}
	}

	// A sealed session that never received a segment is deleted outright.
	// Terminal: there is nothing to retry.
	if len(segments) == 0 {
		if err := s.sessions.Discard(ctx, sess.ID); err != nil {
			log.WithError(err).Error("failed to discard empty session")
			s.audit.Record(ctx, sess.UserID, models.AuditMaintenanceError, false, map[string]any{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
			return SweepResult{Action: ActionError, SessionID: sess.ID, Error: err.Error()}
		}
		s.audit.Record(ctx, sess.UserID, models.AuditSessionDiscarded, true, map[string]any{
			"session_id": sess.ID,
		})
		log.Info("empty session discarded")
		return SweepResult{Action: ActionDiscardedEmpty, SessionID: sess.ID}
	}

	var merged bytes.Buffer
	var totalDuration float64
	for _, seg := range segments {
		data, err := s.store.Get(ctx, seg.StoragePath)
		if err != nil {
			log.WithError(err).WithField("segment_id", seg.ID).Warn("segment download failed")
			s.recordConcatError(ctx, sess, causeSegmentDownloadFailed, map[string]any{
				"segment_id":   seg.ID,
				"storage_path": seg.StoragePath,
				"error":        err.Error(),
			})
			return SweepResult{Action: ActionDownloadError, SessionID: sess.ID, Error: err.Error()}
		}
		merged.Write(data)

		if seg.DurationSeconds != nil && *seg.DurationSeconds > 0 {
			totalDuration += *seg.DurationSeconds
		} else {
			totalDuration += defaultSegmentDuration
		}
	}

	key := artifactKey(sess)
	if err := s.store.Put(ctx, key, merged.Bytes(), mergedContentType); err != nil {
		log.WithError(err).Warn("merged upload failed")
		s.recordConcatError(ctx, sess, causeFinalUploadFailed, map[string]any{
			"storage_path": key,
			"error":        err.Error(),
		})
		return SweepResult{Action: ActionUploadError, SessionID: sess.ID, Error: err.Error()}
	}

	// Read-after-write check: a PUT that returned success but did not
	// persist must not let the session advance past its segments.
	exists, err := s.store.Head(ctx, key)
	if err != nil || !exists {
		details := map[string]any{"storage_path": key}
		if err != nil {
			details["error"] = err.Error()
		}
		log.Warn("merged object missing after upload")
		s.recordConcatError(ctx, sess, causeFinalFileNotFound, details)
		res := SweepResult{Action: ActionVerifyError, SessionID: sess.ID}
		if err != nil {
			res.Error = err.Error()
		}
		return res
	}

	now := time.Now().UTC()
	rec := &models.Recording{
		ID:              uuid.NewString(),
		UserID:          sess.UserID,
		DeviceID:        sess.DeviceID,
		SessionID:       sess.ID,
		StoragePath:     key,
		DurationSeconds: totalDuration,
		Status:          models.RecordingStatusPending,
		CreatedAt:       now,
	}
	if err := s.recordings.Insert(ctx, rec); err != nil {
		// Leaves an orphan object behind; acceptable since the key is
		// deterministic and the retry overwrites it.
		log.WithError(err).Warn("recording insert failed")
		s.recordConcatError(ctx, sess, causeRecordingInsertFailed, map[string]any{
			"storage_path": key,
			"error":        err.Error(),
		})
		return SweepResult{Action: ActionInsertError, SessionID: sess.ID, Error: err.Error()}
	}

	if err := s.sessions.CompleteMerge(ctx, sess.ID, rec.ID, len(segments), totalDuration, now); err != nil {
		log.WithError(err).Error("failed to mark session merged")
		s.audit.Record(ctx, sess.UserID, models.AuditMaintenanceError, false, map[string]any{
			"session_id":   sess.ID,
			"recording_id": rec.ID,
			"error":        err.Error(),
		})
		return SweepResult{Action: ActionError, SessionID: sess.ID, Error: err.Error()}
	}

	s.audit.Record(ctx, sess.UserID, models.AuditSessionConcatenated, true, map[string]any{
		"session_id":       sess.ID,
		"recording_id":     rec.ID,
		"segments":         len(segments),
		"duration_seconds": totalDuration,
	})

	// Cleanup. Object deletion is idempotent (absence is success) and a
	// storage-side failure must not block removal of the row.
	cleaned := 0
	for _, seg := range segments {
		if err := s.store.Delete(ctx, seg.StoragePath); err != nil {
			log.WithError(err).WithField("segment_id", seg.ID).Warn("segment object delete failed")
		}
		if err := s.sessions.DeleteSegment(ctx, seg.ID); err != nil {
			log.WithError(err).WithField("segment_id", seg.ID).Warn("segment row delete failed")
			continue
		}
		cleaned++
	}
	s.audit.Record(ctx, sess.UserID, models.AuditSegmentsCleanupDone, true, map[string]any{
		"session_id": sess.ID,
		"count":      cleaned,
	})

	go s.pipeline.Trigger(rec.ID)

	log.WithFields(logrus.Fields{
		"recording_id":     rec.ID,
		"segments":         len(segments),
		"duration_seconds": totalDuration,
	}).Info("session concatenated")

	return SweepResult{
		Action:          ActionConcatenated,
		SessionID:       sess.ID,
		RecordingID:     rec.ID,
		Segments:        len(segments),
		DurationSeconds: totalDuration,
	}
}

func (s *mergeService) recordConcatError(ctx context.Context, sess *models.MonitoringSession, cause string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["session_id"] = sess.ID
	details["cause"] = cause
	s.audit.Record(ctx, sess.UserID, models.AuditConcatenationError, false, details)
}

// artifactKey builds the deterministic destination for a merged recording:
// {user_id}/{YYYY-MM-DD}/{session_id}.audio, dated by the seal time.
func artifactKey(sess *models.MonitoringSession) string {
	at := time.Now().UTC()
	if sess.ClosedAt != nil {
		at = sess.ClosedAt.UTC()
	}
	return fmt.Sprintf("%s/%s/%s.audio", sess.UserID, at.Format("2006-01-02"), sess.ID)
}
