package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/stuplan/imagehost"
	"github.com/anjiri1684/stuplan/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UploadLedger interface {
	OlderThan(ctx context.Context, cutoff time.Time) ([]models.AvatarUpload, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AvatarRefLister interface {
	AvatarRefs(ctx context.Context) (map[string]struct{}, error)
}

// AvatarCleanup deletes hosted avatar images that no profile references
// any more, once they are older than the orphan age.
type AvatarCleanup struct {
	uploads  UploadLedger
	profiles AvatarRefLister
	removers map[string]imagehost.Remover
	age      time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewAvatarCleanup(uploads UploadLedger, profiles AvatarRefLister, age time.Duration, log *zap.Logger, removers ...imagehost.Remover) *AvatarCleanup {
	if log == nil {
		log = zap.NewNop()
	}
	byProvider := make(map[string]imagehost.Remover, len(removers))
	for _, r := range removers {
		byProvider[r.Provider()] = r
	}
	return &AvatarCleanup{
		uploads:  uploads,
		profiles: profiles,
		removers: byProvider,
		age:      age,
		timeout:  5 * time.Minute,
		now:      time.Now,
		log:      log,
	}
}

// Run is the cron entry point.
func (j *AvatarCleanup) Run() {
	j.log.Info("running job: avatar cleanup")

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.RunContext(ctx)
	if err != nil {
		j.log.Error("avatar cleanup failed", zap.Int("removed", removed), zap.Error(err))
		return
	}
	j.log.Info("avatar cleanup finished", zap.Int("removed", removed))
}

// RunContext removes orphaned uploads and returns how many were removed.
// A failed remote delete skips that upload; it is retried on the next run.
func (j *AvatarCleanup) RunContext(ctx context.Context) (int, error) {
	uploads, err := j.uploads.OlderThan(ctx, j.now().Add(-j.age))
	if err != nil {
		return 0, err
	}
	if len(uploads) == 0 {
		return 0, nil
	}

	inUse, err := j.profiles.AvatarRefs(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, upload := range uploads {
		if _, ok := inUse[upload.URL]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		remover, ok := j.removers[upload.Provider]
		if !ok {
			j.log.Warn("no remover for provider", zap.String("provider", upload.Provider), zap.String("url", upload.URL))
			continue
		}
		if err := remover.Delete(ctx, upload.RemoteID); err != nil {
			j.log.Warn("failed to delete hosted avatar", zap.String("url", upload.URL), zap.Error(err))
			continue
		}
		if err := j.uploads.Delete(ctx, upload.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
